// Package chat is the conversation core. It maps direct and group
// conversations onto transport rooms, authorizes every event against the
// Directory at the moment it is handled, persists through the Store and fans
// successful outcomes out to the right room.
//
// The transport is abstracted behind Rooms and Conn; internal/server provides
// the websocket implementation.
package chat
