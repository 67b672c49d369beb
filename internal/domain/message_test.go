package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirectMessageMarksAreFirstWriteWins(t *testing.T) {
	req := require.New(t)
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := DirectMessage{ID: "m1", Sender: "a", Receiver: "b"}

	req.True(m.MarkRead(first))
	req.False(m.MarkRead(first.Add(time.Hour)))
	req.Equal(first, *m.ReadAt)

	req.True(m.MarkDelivered(first))
	req.False(m.MarkDelivered(first.Add(time.Minute)))
	req.Equal(first, *m.DeliveredAt)
	req.Equal(DirectRoom("a", "b"), m.Room())
}

func TestGroupMessageReceiptsAreSets(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := GroupMessage{ID: "m1", Sender: "a", Group: "g"}

	req.True(m.MarkDeliveredTo("b", at))
	req.False(m.MarkDeliveredTo("b", at.Add(time.Second)))
	req.Len(m.DeliveredTo, 1)

	r, changed := m.MarkReadBy("b", at)
	req.True(changed)
	again, changed := m.MarkReadBy("b", at.Add(time.Hour))
	req.False(changed)
	req.Equal(r, again)
	req.Len(m.ReadBy, 1)

	req.True(m.ForgetReceipts("b"))
	req.Empty(m.DeliveredTo)
	req.Empty(m.ReadBy)
	req.False(m.ForgetReceipts("b"))
}

func TestMessageTypeValid(t *testing.T) {
	for _, mt := range []MessageType{MessageText, MessageImage, MessageFile, MessageSystem} {
		require.True(t, mt.Valid())
	}
	require.False(t, MessageType("video").Valid())
}

func TestPageSize(t *testing.T) {
	req := require.New(t)
	req.Equal(DefaultPageSize, Page{}.Size())
	req.Equal(10, Page{Limit: 10}.Size())
	req.Equal(MaxPageSize, Page{Limit: 10_000}.Size())

	now := time.Now()
	req.True(Page{}.Includes(now))
	req.True(Page{Before: now}.Includes(now.Add(-time.Second)))
	req.False(Page{Before: now}.Includes(now))
}
