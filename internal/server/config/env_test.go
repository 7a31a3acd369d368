package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overrides set variables only", func(t *testing.T) {
		t.Setenv("FASTCHAT_ADDR", ":2222")
		t.Setenv("FASTCHAT_IDLE_TIMEOUT", "90s")
		t.Setenv("FASTCHAT_ARGON2_THREADS", "2")
		t.Setenv("FASTCHAT_S3_BUCKET", "chat-archive")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, ":2222", cfg.Addr)
		assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
		assert.Equal(t, uint8(2), cfg.Argon2Threads)
		assert.Equal(t, "chat-archive", cfg.S3Bucket)

		// untouched fields keep their defaults
		assert.Equal(t, "pepper", cfg.Pepper)
		assert.Equal(t, 8*1024, cfg.MaxLineBytes)
	})

	t.Run("zero override is honored", func(t *testing.T) {
		t.Setenv("FASTCHAT_IDLE_TIMEOUT", "0s")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, time.Duration(0), cfg.IdleTimeout)
	})

	t.Run("malformed duration panics", func(t *testing.T) {
		t.Setenv("FASTCHAT_WRITE_TIMEOUT", "whenever")

		cfg := &Config{}
		cfg.LoadDefaults()
		assert.Panics(t, func() { parseEnv(cfg) })
	})
}
