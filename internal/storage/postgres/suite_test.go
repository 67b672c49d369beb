package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/storage/storetest"
	"github.com/stretchr/testify/require"
)

// TestStoreSuite runs the shared driver suite against a real database when
// ROOMCHAT_TEST_DATABASE_DSN points at one.
func TestStoreSuite(t *testing.T) {
	dsn := os.Getenv("ROOMCHAT_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("ROOMCHAT_TEST_DATABASE_DSN not set")
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	storetest.Run(t, func(t *testing.T) domain.Backend {
		s, err := Open(context.Background(), dsn, log)
		require.NoError(t, err)
		_, err = s.db.ExecContext(context.Background(), `TRUNCATE presence, direct_messages, group_message_receipts, group_messages, group_members, groups`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
