package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("LOCKSTEP_TEST_DIR", "/srv/data")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty", path: "", want: ""},
		{name: "absolute untouched", path: "/var/lib/lockstep.db", want: "/var/lib/lockstep.db"},
		{name: "tilde prefix", path: "~/lockstep.db", want: filepath.Join(home, "lockstep.db")},
		{name: "bare tilde", path: "~", want: home},
		{name: "env var", path: "$LOCKSTEP_TEST_DIR/lockstep.db", want: "/srv/data/lockstep.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.path))
		})
	}
}
