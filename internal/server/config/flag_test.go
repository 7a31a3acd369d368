package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:4444", "-d", "db", "-s", "spicy",
				"-i", "60", "-w", "5", "-l", "2048", "-q", "16",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint", "-n", "30",
			},
			expected: Config{
				Addr:            "127.0.0.1:4444",
				DatabaseDSN:     "db",
				Pepper:          "spicy",
				IdleTimeout:     60 * time.Second,
				WriteTimeout:    5 * time.Second,
				MaxLineBytes:    2048,
				SendQueueLen:    16,
				S3RootUser:      "user",
				S3RootPassword:  "password",
				S3Bucket:        "bucket",
				S3Region:        "us-west-1",
				S3BaseEndpoint:  "http://endpoint",
				ArchiveInterval: 30 * time.Second,
			},
		},
		{
			name: "unknown flags are filtered out",
			args: []string{"cmd", "-a", ":7777", "-zzz", "nope"},
			expected: Config{
				Addr: ":7777",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Equal(t, tt.expected, *config)
		})
	}
}
