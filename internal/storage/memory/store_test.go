package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/storage/storetest"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) domain.Backend { return New() })
}

func TestPresenceIsRecorded(t *testing.T) {
	req := require.New(t)
	s := New()

	_, ok := s.Presence("u1")
	req.False(ok)

	req.NoError(s.SetPresence(context.Background(), "u1", true, now))
	p, ok := s.Presence("u1")
	req.True(ok)
	req.Equal(Presence{Online: true, LastSeen: now}, p)
}

func TestIDGenerator(t *testing.T) {
	s := New(WithIDGenerator(func() string { return "fixed" }))
	msg, err := s.CreateDirectMessage(context.Background(), domain.DirectMessage{Sender: "u1", Receiver: "u2", Content: "x"})
	require.NoError(t, err)
	require.Equal(t, domain.MessageID("fixed"), msg.ID)
}

func TestReturnedMessagesAreCopies(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := New()
	g, err := domain.NewGroup("g1", "team", "u1", []domain.UserID{"u2"}, 0, now)
	req.NoError(err)
	_, err = s.CreateGroup(ctx, g)
	req.NoError(err)
	msg, err := s.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "u1", Group: "g1", Content: "x", Type: domain.MessageText})
	req.NoError(err)
	req.NoError(s.MarkGroupDelivered(ctx, msg.ID, []domain.UserID{"u2"}, now))

	got, err := s.GetGroupMessage(ctx, msg.ID)
	req.NoError(err)
	got.DeliveredTo[0].UserID = "mallory"

	again, err := s.GetGroupMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal(domain.UserID("u2"), again.DeliveredTo[0].UserID)
}

func TestReceiptsOnRejoin(t *testing.T) {
	for _, reset := range []bool{false, true} {
		t.Run(map[bool]string{false: "kept", true: "reset"}[reset], func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			s := New(WithReceiptReset(reset))
			g, err := domain.NewGroup("g1", "team", "u1", []domain.UserID{"u2"}, 0, now)
			req.NoError(err)
			_, err = s.CreateGroup(ctx, g)
			req.NoError(err)
			msg, err := s.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "u1", Group: "g1", Content: "x", Type: domain.MessageText})
			req.NoError(err)
			req.NoError(s.MarkGroupDelivered(ctx, msg.ID, []domain.UserID{"u2"}, now))
			_, _, err = s.MarkGroupRead(ctx, msg.ID, "u2", now)
			req.NoError(err)

			_, err = s.RemoveMember(ctx, "g1", "u2", now)
			req.NoError(err)
			_, err = s.AddMember(ctx, "g1", "u2", "", now)
			req.NoError(err)

			got, err := s.GetGroupMessage(ctx, msg.ID)
			req.NoError(err)
			if reset {
				req.Empty(got.DeliveredTo)
				req.Empty(got.ReadBy)
				return
			}
			req.Len(got.DeliveredTo, 1)
			req.Len(got.ReadBy, 1)
		})
	}
}
