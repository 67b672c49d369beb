// Package server is the WebSocket transport of the chat core.
//
// The Hub owns every connection and the rooms they are in and implements
// chat.Rooms; each Client runs a read pump that feeds frames to the core in
// arrival order and a write pump that flushes its send buffer. The HTTP side
// admits callers before upgrading and serves a health endpoint.
package server
