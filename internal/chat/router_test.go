package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
	"github.com/Tyrowin/roomchat/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAdmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.router.Admit(ctx, "tok-u1")
	require.NoError(t, err)
	require.Equal(t, domain.UserID("u1"), user)

	for _, credential := range []string{"", "tok-nobody"} {
		user, err := f.router.Admit(ctx, credential)
		require.Error(t, err)
		require.Empty(t, user)
		require.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
	}
}

func TestMalformedFramesOnlyReachTheSender(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	u1, u2 := f.connect("u1"), f.connect("u2")
	f.send(u1, events.EventJoinRoom, map[string]string{"otherUserId": "u2"})
	f.send(u2, events.EventJoinRoom, map[string]string{"otherUserId": "u1"})
	f.drain(u1, u2)

	ctx := context.Background()
	f.router.Dispatch(ctx, u1, []byte(`not json`))
	f.router.Dispatch(ctx, u1, []byte(`{"event":"selfDestruct","data":{}}`))
	f.router.Dispatch(ctx, u1, []byte(`{"event":"sendMessage","data":{"receiver":"u2"}}`))
	f.router.Dispatch(ctx, u1, []byte(`{"event":"sendMessage","data":"hello"}`))

	got := f.rooms.take(u1)
	req.Len(got, 4)
	req.Equal(events.Error("Malformed event"), got[0])
	req.Equal(events.Error(`Unknown event "selfDestruct"`), got[1])
	req.Equal(events.ErrorMessage("content is required"), got[2])
	req.Equal(events.EventErrorMessage, got[3].Event)
	req.Empty(f.rooms.take(u2))
}

func TestPresenceFollowsConnections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	watcher := f.connect("u2")
	phone := f.connect("u1")
	laptop := f.connect("u1")
	f.drain(phone, laptop)
	req.Equal([]events.Outbound{
		events.UserOnline("u2"),
		events.UserOnline("u1"),
		events.UserOnline("u1"),
	}, f.rooms.take(watcher))

	p, ok := f.store.Presence("u1")
	req.True(ok)
	req.True(p.Online)

	f.rooms.drop(phone)
	f.router.Disconnected(ctx, phone)
	req.Empty(f.rooms.take(watcher))

	f.rooms.drop(laptop)
	f.router.Disconnected(ctx, laptop)
	req.Equal([]events.Outbound{events.UserOffline("u1")}, f.rooms.take(watcher))

	p, ok = f.store.Presence("u1")
	req.True(ok)
	req.False(p.Online)
	req.Equal(testNow, p.LastSeen)
}

func TestPresenceStoreFailureStillBroadcasts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	rooms := newFakeRooms()
	watcher := rooms.connect("c2", "u2")
	c := rooms.connect("c1", "u1")

	store.EXPECT().SetPresence(gomock.Any(), domain.UserID("u1"), true, gomock.Any()).Return(errors.New("db down"))
	store.EXPECT().SetPresence(gomock.Any(), domain.UserID("u1"), false, gomock.Any()).Return(errors.New("db down"))

	r := NewRouter(Deps{Auth: staticAuth{}, Store: store, Directory: mocks.NewMockDirectory(ctrl), Rooms: rooms, Log: discardLogger()})
	r.Connected(context.Background(), c)
	rooms.drop(c)
	r.Disconnected(context.Background(), c)

	require.Equal(t, []events.Outbound{events.UserOnline("u1"), events.UserOffline("u1")}, rooms.take(watcher))
}

func TestConnectionWithoutIdentityIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	rooms := newFakeRooms()
	anon := rooms.connect("c0", "")

	r := NewRouter(Deps{
		Auth:      staticAuth{},
		Store:     mocks.NewMockStore(ctrl),
		Directory: mocks.NewMockDirectory(ctrl),
		Rooms:     rooms,
		Log:       discardLogger(),
	})
	r.Connected(context.Background(), anon)
	r.Dispatch(context.Background(), anon, frame(t, events.EventSendMessage, map[string]string{"receiver": "u2", "content": "hi"}))
	r.Disconnected(context.Background(), anon)

	require.Empty(t, rooms.take(anon))
}

func TestHandlerPanicBecomesErrorFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	rooms := newFakeRooms()
	c := rooms.connect("c1", "u1")

	store.EXPECT().GetDirectMessage(gomock.Any(), domain.MessageID("m1")).DoAndReturn(
		func(context.Context, domain.MessageID) (domain.DirectMessage, error) { panic("boom") })

	r := NewRouter(Deps{Auth: staticAuth{}, Store: store, Directory: mocks.NewMockDirectory(ctrl), Rooms: rooms, Log: discardLogger()})
	r.Dispatch(context.Background(), c, frame(t, events.EventMarkAsRead, map[string]string{"messageId": "m1"}))

	require.Equal(t, []events.Outbound{events.ErrorMessage("Internal server error")}, rooms.take(c))
}
