package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWT: JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		RateLimit: RateLimitConfig{
			Backend:     "memory",
			Window:      time.Minute,
			MaxRequests: 100,
			AuthMax:     10,
		},
	}
}

func TestValidate_MissingSecretAbortsStartup(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = "   "

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestValidate_RateLimitMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Window = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRateLimit)

	cfg = validConfig()
	cfg.RateLimit.AuthMax = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidRateLimit)
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Accepts(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_DATABASE", "storefront")

	cfg := Load()

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "postgres://shop:pw@localhost:5432/storefront?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestDSN_EscapesCredentials(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5432",
		User:     "shop@eu",
		Password: "p@ss/w:rd?#",
		Database: "storefront",
		SSLMode:  "require",
	}

	parsed, err := url.Parse(cfg.DSN())
	require.NoError(t, err)

	password, ok := parsed.User.Password()
	require.True(t, ok)
	assert.Equal(t, "shop@eu", parsed.User.Username())
	assert.Equal(t, "p@ss/w:rd?#", password)
	assert.Equal(t, "db.internal:5432", parsed.Host)
	assert.Equal(t, "/storefront", parsed.Path)
	assert.Equal(t, "require", parsed.Query().Get("sslmode"))
}
