package badgerstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/storage/storetest"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func open(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	s := New(db, discard(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Backend { return open(t) })
}

func TestInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Backend {
		s, err := Open("", discard())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestDataSurvivesReopen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, discard())
	req.NoError(err)
	msg, err := s.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "u1", Receiver: "u2", Content: "persist me", CreatedAt: now})
	req.NoError(err)
	_, _, err = s.MarkDirectRead(ctx, msg.ID, now.Add(time.Second))
	req.NoError(err)
	req.NoError(s.Close())

	s, err = Open(dir, discard())
	req.NoError(err)
	defer s.Close()
	got, err := s.GetDirectMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal("persist me", got.Content)
	req.NotNil(got.ReadAt)
	req.True(now.Add(time.Second).Equal(*got.ReadAt))
}

func TestHistoryIgnoresScopesSharingAPrefix(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := open(t)

	// "a" + "b:x" produces a room key that extends the key of "a" + "b".
	_, err := s.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "a", Receiver: "b:x", Content: "other", CreatedAt: now})
	req.NoError(err)
	_, err = s.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "a", Receiver: "b", Content: "mine", CreatedAt: now})
	req.NoError(err)

	msgs, err := s.ListDirectMessages(ctx, "a", "b", domain.Page{})
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("mine", msgs[0].Content)
}

func TestReceiptsResetOnRejoin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := open(t, WithReceiptReset(true))

	g, err := domain.NewGroup("g1", "team", "u1", []domain.UserID{"u2", "u3"}, 0, now)
	req.NoError(err)
	_, err = s.CreateGroup(ctx, g)
	req.NoError(err)
	msg, err := s.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "u1", Group: "g1", Content: "x", Type: domain.MessageText, CreatedAt: now})
	req.NoError(err)
	req.NoError(s.MarkGroupDelivered(ctx, msg.ID, []domain.UserID{"u2", "u3"}, now))
	_, _, err = s.MarkGroupRead(ctx, msg.ID, "u2", now)
	req.NoError(err)

	_, err = s.RemoveMember(ctx, "g1", "u2", now)
	req.NoError(err)
	_, err = s.AddMember(ctx, "g1", "u2", "", now)
	req.NoError(err)

	got, err := s.GetGroupMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(got.DeliveredTo, 1)
	req.Equal(domain.UserID("u3"), got.DeliveredTo[0].UserID)
	req.Empty(got.ReadBy)
}
