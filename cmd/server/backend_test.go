package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/config"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, driver := range []string{config.DriverMemory, config.DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.StoreDriver = driver
			cfg.BadgerPath = filepath.Join(t.TempDir(), "badger")

			b, err := openBackend(t.Context(), cfg, log)
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, b.Close()) })

			require.NoError(t, b.SetPresence(t.Context(), "u1", true, time.Now().UTC()))
			_, err = b.GetGroup(t.Context(), "missing")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default()
		cfg.StoreDriver = "sqlite"
		_, err := openBackend(t.Context(), cfg, log)
		require.ErrorContains(t, err, "unknown store driver")
	})
}
