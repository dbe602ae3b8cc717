package config

import (
	"testing"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func withDefaults(t *testing.T) {
	t.Helper()

	v.Reset()
	setDefaults()
	v.Set("jwt.secret", "test-secret")
	v.Set("mail.host", "smtp.example.com")
	v.Set("mail.from", "noreply@example.com")

	t.Cleanup(v.Reset)
}

func TestValidateDefaults(t *testing.T) {
	withDefaults(t)
	assert.NoError(t, validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"log level", "app.log_level", "verbose"},
		{"port", "host.port", 0},
		{"driver", "database.driver", "mysql"},
		{"dsn", "database.dsn", ""},
		{"token ttl", "jwt.expires_in", "-1h"},
		{"mail host", "mail.host", ""},
		{"mail from", "mail.from", ""},
		{"rate limit", "security.rate_limit", 0},
		{"body size", "security.max_body_size", -1},
		{"throttle store", "throttle.store", "memcached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withDefaults(t)
			v.Set(tt.key, tt.val)
			assert.Error(t, validate())
		})
	}
}

func TestValidateRedisStoreNeedsAddr(t *testing.T) {
	withDefaults(t)
	v.Set("throttle.store", "redis")
	v.Set("redis.addr", "")

	assert.Error(t, validate())
}

func TestValidateTurnstileNeedsSecret(t *testing.T) {
	withDefaults(t)
	v.Set("cloudflare.turnstile.enabled", true)

	assert.Error(t, validate())

	v.Set("cloudflare.turnstile.secret_token", "secret")
	assert.NoError(t, validate())
}
