package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
)

// Deps are the collaborators the core is built from.
type Deps struct {
	Auth      Authenticator
	Store     domain.Store
	Directory domain.Directory
	Rooms     Rooms
	Log       *slog.Logger
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// Router is the composition root of the core: the transport hands it
// connections and raw frames, and it dispatches each decoded event to exactly
// one handler scoped to the connection's identity.
type Router struct {
	gate     *Gate
	presence *Presence
	direct   *DirectChannel
	group    *GroupChannel
	rooms    Rooms
	log      *slog.Logger
}

func NewRouter(d Deps) *Router {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		gate:     NewGate(d.Auth, log),
		presence: NewPresence(d.Store, d.Rooms, log, now),
		direct:   NewDirectChannel(d.Store, d.Rooms, log, now),
		group:    NewGroupChannel(d.Store, d.Directory, d.Rooms, log, now),
		rooms:    d.Rooms,
		log:      log.With("component", "router"),
	}
}

// Admit runs the Gate for a connection attempt.
func (r *Router) Admit(ctx context.Context, credential string) (domain.UserID, error) {
	return r.gate.Admit(ctx, credential)
}

// Connected must be called once per connection after it passed the Gate and
// was registered with the transport.
func (r *Router) Connected(ctx context.Context, c Conn) {
	if c.UserID() == "" {
		return
	}
	r.presence.MarkOnline(context.WithoutCancel(ctx), c.UserID())
}

// Disconnected must be called at most once per connection, after the
// transport dropped it from every room. The user goes offline when this was
// their last connection.
func (r *Router) Disconnected(ctx context.Context, c Conn) {
	user := c.UserID()
	if user == "" {
		return
	}
	for _, other := range r.rooms.Connections(user) {
		if other.ID() != c.ID() {
			return
		}
	}
	r.presence.MarkOffline(context.WithoutCancel(ctx), user)
}

// Dispatch decodes one frame from c and runs its handler. Failures are
// logged and answered with a scoped error frame to c alone. Handlers outlive
// the connection: ctx cancellation does not abort persistence.
func (r *Router) Dispatch(ctx context.Context, c Conn, raw []byte) {
	if c.UserID() == "" {
		return
	}
	name, ev, err := events.Decode(raw)
	if err == nil {
		err = r.handle(context.WithoutCancel(ctx), c, ev)
	}
	if err != nil {
		r.fail(c, name, err)
	}
}

func (r *Router) handle(ctx context.Context, c Conn, ev events.Inbound) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()

	switch e := ev.(type) {
	case events.JoinRoom:
		return r.direct.Join(ctx, c, e.OtherUserID)
	case events.SendMessage:
		return r.direct.Send(ctx, c, e.Receiver, e.Content)
	case events.MarkAsRead:
		return r.direct.MarkRead(ctx, c, e.MessageID)
	case events.Typing:
		r.direct.Typing(ctx, c, e.Receiver, false)
	case events.StopTyping:
		r.direct.Typing(ctx, c, e.Receiver, true)
	case events.JoinGroup:
		return r.group.Join(ctx, c, e.GroupID)
	case events.LeaveGroup:
		r.group.Leave(ctx, c, e.GroupID)
	case events.SendGroupMessage:
		return r.group.Send(ctx, c, e)
	case events.MarkGroupMessageAsRead:
		return r.group.MarkRead(ctx, c, e.MessageID, e.GroupID)
	case events.GroupTyping:
		r.group.Typing(ctx, c, e.GroupID, false)
	case events.StopGroupTyping:
		r.group.Typing(ctx, c, e.GroupID, true)
	case events.MemberAddedToGroup:
		return r.group.MemberAdded(ctx, c, e)
	case events.MemberRemovedFromGroup:
		return r.group.MemberRemoved(ctx, c, e)
	default:
		return apperr.Validation(fmt.Sprintf("Unhandled event %q", ev.EventName()))
	}
	return nil
}

func (r *Router) fail(c Conn, name string, err error) {
	kind := apperr.KindOf(err)
	log := r.log.With("user", c.UserID(), "conn", c.ID(), "event", name, "kind", kind)
	switch kind {
	case apperr.KindPersistence, apperr.KindInternal:
		log.Error("event failed", "error", err)
	default:
		log.Info("event rejected", "error", err)
	}
	r.rooms.Emit(c, events.ErrorFor(name, apperr.Message(err)))
}
