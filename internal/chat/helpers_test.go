package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
	"github.com/Tyrowin/roomchat/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type testConn struct {
	id   string
	user domain.UserID
}

func (c *testConn) ID() string            { return c.id }
func (c *testConn) UserID() domain.UserID { return c.user }

// fakeRooms is an in-process Rooms that records every frame per connection.
type fakeRooms struct {
	mu    sync.Mutex
	conns map[string]*testConn
	rooms map[string]map[string]bool
	inbox map[string][]events.Outbound
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		conns: make(map[string]*testConn),
		rooms: make(map[string]map[string]bool),
		inbox: make(map[string][]events.Outbound),
	}
}

func (f *fakeRooms) connect(id string, user domain.UserID) *testConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &testConn{id: id, user: user}
	f.conns[id] = c
	return c
}

func (f *fakeRooms) drop(c Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, c.ID())
	for _, members := range f.rooms {
		delete(members, c.ID())
	}
}

func (f *fakeRooms) Join(c Conn, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[room] == nil {
		f.rooms[room] = make(map[string]bool)
	}
	f.rooms[room][c.ID()] = true
}

func (f *fakeRooms) Leave(c Conn, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms[room], c.ID())
}

func (f *fakeRooms) InRoom(c Conn, room string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[room][c.ID()]
}

func (f *fakeRooms) Emit(c Conn, ev events.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox[c.ID()] = append(f.inbox[c.ID()], ev)
}

func (f *fakeRooms) Broadcast(room string, except Conn, ev events.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.rooms[room] {
		if except != nil && except.ID() == id {
			continue
		}
		f.inbox[id] = append(f.inbox[id], ev)
	}
}

func (f *fakeRooms) BroadcastAll(ev events.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.conns {
		f.inbox[id] = append(f.inbox[id], ev)
	}
}

func (f *fakeRooms) RoomMembers(room string) []domain.UserID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.UserID
	for id := range f.rooms[room] {
		out = append(out, f.conns[id].user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *fakeRooms) Connections(user domain.UserID) []Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Conn
	for _, c := range f.conns {
		if c.user == user {
			out = append(out, c)
		}
	}
	return out
}

// take returns and clears the frames received by c.
func (f *fakeRooms) take(c Conn) []events.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.inbox[c.ID()]
	delete(f.inbox, c.ID())
	return out
}

func (f *fakeRooms) takeNames(c Conn) []string {
	var names []string
	for _, ev := range f.take(c) {
		names = append(names, ev.Event)
	}
	return names
}

type staticAuth map[string]domain.UserID

func (a staticAuth) Authenticate(_ context.Context, token string) (domain.UserID, error) {
	if u, ok := a[token]; ok {
		return u, nil
	}
	return "", domain.ErrNotFound
}

type fixture struct {
	t      *testing.T
	rooms  *fakeRooms
	store  *memory.Store
	router *Router
	seq    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rooms := newFakeRooms()
	store := memory.New()
	return &fixture{
		t:     t,
		rooms: rooms,
		store: store,
		router: NewRouter(Deps{
			Auth:      staticAuth{"tok-u1": "u1", "tok-u2": "u2", "tok-u3": "u3"},
			Store:     store,
			Directory: store,
			Rooms:     rooms,
			Log:       discardLogger(),
			Now:       func() time.Time { return testNow },
		}),
	}
}

func (f *fixture) connect(user domain.UserID) *testConn {
	f.seq++
	c := f.rooms.connect(fmt.Sprintf("%s-%d", user, f.seq), user)
	f.router.Connected(context.Background(), c)
	return c
}

func (f *fixture) send(c Conn, event string, data any) {
	f.router.Dispatch(context.Background(), c, frame(f.t, event, data))
}

func (f *fixture) group(id domain.GroupID, admin domain.UserID, members ...domain.UserID) domain.GroupID {
	f.t.Helper()
	g, err := domain.NewGroup(id, "team", admin, members, 0, testNow)
	require.NoError(f.t, err)
	_, err = f.store.CreateGroup(context.Background(), g)
	require.NoError(f.t, err)
	return id
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	require.NoError(t, err)
	return raw
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errorText(t *testing.T, ev events.Outbound) string {
	t.Helper()
	p, ok := ev.Data.(events.ErrorPayload)
	require.True(t, ok, "not an error frame: %+v", ev)
	return p.Message
}

func (f *fixture) drain(conns ...Conn) {
	for _, c := range conns {
		f.rooms.take(c)
	}
}
