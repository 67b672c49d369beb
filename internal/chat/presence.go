package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
)

// Presence tracks online state. Persistence is best-effort: a failing store
// is logged and the transition is still broadcast to every connection.
type Presence struct {
	store domain.Store
	rooms Rooms
	log   *slog.Logger
	now   func() time.Time
}

func NewPresence(store domain.Store, rooms Rooms, log *slog.Logger, now func() time.Time) *Presence {
	return &Presence{store: store, rooms: rooms, log: log.With("component", "presence"), now: now}
}

func (p *Presence) MarkOnline(ctx context.Context, user domain.UserID) {
	p.set(ctx, user, true)
	p.rooms.BroadcastAll(events.UserOnline(user))
}

func (p *Presence) MarkOffline(ctx context.Context, user domain.UserID) {
	p.set(ctx, user, false)
	p.rooms.BroadcastAll(events.UserOffline(user))
}

func (p *Presence) set(ctx context.Context, user domain.UserID, online bool) {
	if err := p.store.SetPresence(ctx, user, online, p.now()); err != nil {
		p.log.Warn("presence not persisted", "user", user, "online", online, "error", err)
	}
}
