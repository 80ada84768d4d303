package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should build a console logger from defaults", func(t *testing.T) {
		l, err := New(DefaultConfig())
		require.NoError(t, err)
		defer l.Close()
		assert.NotNil(t, l.Zerolog())
	})

	t.Run("should fall back to info on an unknown level", func(t *testing.T) {
		l, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		defer l.Close()
	})

	t.Run("should create the log file and its directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "openapex.log")
		l, err := New(Config{Level: "debug", File: path})
		require.NoError(t, err)

		log := l.Zerolog()
		log.Info().Msg("hello")
		require.NoError(t, l.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello")
	})
}
