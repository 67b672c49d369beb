package chat

import (
	"context"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
)

// Conn is a live connection that passed the Gate.
type Conn interface {
	ID() string
	UserID() domain.UserID
}

// Rooms is the broadcast surface of the transport. Implementations must be
// safe for concurrent use; joining a room twice or leaving a room the
// connection is not in is a no-op.
type Rooms interface {
	Join(c Conn, room string)
	Leave(c Conn, room string)
	InRoom(c Conn, room string) bool
	// Emit sends to one connection only.
	Emit(c Conn, ev events.Outbound)
	// Broadcast sends to every connection in room except the given one,
	// which may be nil.
	Broadcast(room string, except Conn, ev events.Outbound)
	// BroadcastAll sends to every live connection.
	BroadcastAll(ev events.Outbound)
	// RoomMembers returns the distinct identities currently in room.
	RoomMembers(room string) []domain.UserID
	// Connections returns the live connections of user.
	Connections(user domain.UserID) []Conn
}

// Authenticator resolves a presented credential to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (domain.UserID, error)
}
