package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate flag and value",
			args:    []string{"-a", ":9000", "-x", "junk"},
			allowed: []string{"-a"},
			want:    []string{"-a", ":9000"},
		},
		{
			name:    "equals form",
			args:    []string{"--addr=:9000", "--other=1"},
			allowed: []string{"--addr"},
			want:    []string{"--addr=:9000"},
		},
		{
			name:    "flag without value",
			args:    []string{"-v", "-a", ":9000"},
			allowed: []string{"-v"},
			want:    []string{"-v"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "x"},
			allowed: nil,
			want:    []string{},
		},
		{
			name:    "value looking like flag is not swallowed",
			args:    []string{"-a", "-b"},
			allowed: []string{"-a"},
			want:    []string{"-a"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowed)
			assert.Equal(t, tc.want, got)
		})
	}
}
