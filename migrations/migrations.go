// Package migrations embeds the goose SQL migrations so the binary can
// bring the schema up without shipping the files alongside it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
