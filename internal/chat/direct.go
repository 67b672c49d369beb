package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
	"github.com/samber/lo"
)

// DirectChannel serves 1:1 conversations. Any two authenticated users may
// address each other; the room key is derived from the pair.
type DirectChannel struct {
	store domain.Store
	rooms Rooms
	log   *slog.Logger
	now   func() time.Time
}

func NewDirectChannel(store domain.Store, rooms Rooms, log *slog.Logger, now func() time.Time) *DirectChannel {
	return &DirectChannel{store: store, rooms: rooms, log: log.With("component", "direct"), now: now}
}

// Join puts c into the room shared with other.
func (d *DirectChannel) Join(_ context.Context, c Conn, other domain.UserID) error {
	if other == c.UserID() {
		return apperr.Validation("Cannot open a conversation with yourself")
	}
	d.rooms.Join(c, domain.DirectRoom(c.UserID(), other))
	return nil
}

// Send persists a message and broadcasts it to the pair's room. When the
// receiver is in the room the message is marked delivered afterwards.
func (d *DirectChannel) Send(ctx context.Context, c Conn, receiver domain.UserID, content string) error {
	sender := c.UserID()
	content = strings.TrimSpace(content)
	if content == "" {
		return apperr.Validation("Receiver and content are required")
	}
	if receiver == sender {
		return apperr.Validation("Cannot send message to yourself")
	}

	msg, err := d.store.CreateDirectMessage(ctx, domain.DirectMessage{
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: d.now(),
	})
	if err != nil {
		return apperr.Persistence("Failed to send message", err)
	}

	room := msg.Room()
	d.rooms.Broadcast(room, nil, events.ReceiveMessage(msg))
	d.log.Debug("direct message sent", "id", msg.ID, "room", room)

	if lo.Contains(d.rooms.RoomMembers(room), receiver) {
		if _, _, err := d.store.MarkDirectDelivered(ctx, msg.ID, d.now()); err != nil {
			d.log.Warn("delivered mark failed", "id", msg.ID, "error", err)
		}
	}
	return nil
}

// MarkRead records the first read of a message by its receiver. Later calls
// change nothing and broadcast nothing.
func (d *DirectChannel) MarkRead(ctx context.Context, c Conn, id domain.MessageID) error {
	msg, err := d.store.GetDirectMessage(ctx, id)
	if err != nil {
		return lookupError(err, "Message not found")
	}
	if msg.Receiver != c.UserID() {
		return apperr.Authorization("Only the receiver can mark a message as read")
	}

	msg, changed, err := d.store.MarkDirectRead(ctx, id, d.now())
	if err != nil {
		return lookupError(err, "Message not found")
	}
	if !changed {
		return nil
	}
	d.rooms.Broadcast(msg.Room(), nil, events.MessageRead(msg.ID, *msg.ReadAt))
	return nil
}

// Typing relays a typing indicator to the pair's room, sender excluded.
func (d *DirectChannel) Typing(_ context.Context, c Conn, receiver domain.UserID, stop bool) {
	ev := events.TypingFrom(c.UserID())
	if stop {
		ev = events.StopTypingFrom(c.UserID())
	}
	d.rooms.Broadcast(domain.DirectRoom(c.UserID(), receiver), c, ev)
}

// lookupError maps a store read failure to NotFound or Persistence.
func lookupError(err error, notFound string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Persistence("Storage unavailable", err)
}
