package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newWatchedConfig(t *testing.T) (string, chan *Config) {
	t.Helper()
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "negotiation:\n  max_rounds: 4\n")

	SetDefaults()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	changed := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) {
		changed <- cfg
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	// Let the watch register before the test writes.
	time.Sleep(50 * time.Millisecond)
	return path, changed
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path, changed := newWatchedConfig(t)

	writeConfigFile(t, path, "negotiation:\n  max_rounds: 2\n")

	select {
	case cfg := <-changed:
		require.Equal(t, 2, cfg.Negotiation.MaxRounds)
		// Untouched keys keep their defaults through the reload.
		require.Equal(t, 300, cfg.Negotiation.CollectTimeoutSeconds)
	case <-time.After(5 * time.Second):
		t.Fatal("config change never observed")
	}
}

func TestWatcher_IgnoresInvalidEdit(t *testing.T) {
	path, changed := newWatchedConfig(t)

	// An edit that fails validation must not reach the callback.
	writeConfigFile(t, path, "negotiation:\n  max_rounds: 0\n")
	select {
	case cfg := <-changed:
		t.Fatalf("invalid edit delivered: %+v", cfg.Negotiation)
	case <-time.After(debounceWindow + 500*time.Millisecond):
	}

	// The next valid edit still comes through.
	writeConfigFile(t, path, "negotiation:\n  max_rounds: 3\n")
	select {
	case cfg := <-changed:
		require.Equal(t, 3, cfg.Negotiation.MaxRounds)
	case <-time.After(5 * time.Second):
		t.Fatal("valid edit after an invalid one never observed")
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "negotiation:\n  max_rounds: 4\n")
	SetDefaults()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_ = w.Close()
}
