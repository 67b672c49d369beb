// Package storetest holds the behaviour every storage driver must share.
// Drivers call Run from their own tests with a constructor for a fresh,
// empty backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// Run executes the shared driver suite against backends built by newBackend.
func Run(t *testing.T, newBackend func(t *testing.T) domain.Backend) {
	t.Run("direct messages", func(t *testing.T) { testDirectMessages(t, newBackend(t)) })
	t.Run("direct receipts", func(t *testing.T) { testDirectReceipts(t, newBackend(t)) })
	t.Run("direct history", func(t *testing.T) { testDirectHistory(t, newBackend(t)) })
	t.Run("groups", func(t *testing.T) { testGroups(t, newBackend(t)) })
	t.Run("group messages", func(t *testing.T) { testGroupMessages(t, newBackend(t)) })
	t.Run("group receipts", func(t *testing.T) { testGroupReceipts(t, newBackend(t)) })
	t.Run("concurrent receipts", func(t *testing.T) { testConcurrentReceipts(t, newBackend(t)) })
	t.Run("group history", func(t *testing.T) { testGroupHistory(t, newBackend(t)) })
	t.Run("presence", func(t *testing.T) { testPresence(t, newBackend(t)) })
}

func testDirectMessages(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()

	msg, err := b.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "u1", Receiver: "u2", Content: "hi", CreatedAt: base})
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Nil(msg.DeliveredAt)
	req.Nil(msg.ReadAt)

	got, err := b.GetDirectMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal(msg.ID, got.ID)
	req.Equal("hi", got.Content)
	req.True(base.Equal(got.CreatedAt))

	_, err = b.GetDirectMessage(ctx, "missing")
	req.ErrorIs(err, domain.ErrNotFound)
	_, _, err = b.MarkDirectRead(ctx, "missing", base)
	req.ErrorIs(err, domain.ErrNotFound)
}

func testDirectReceipts(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()
	msg, err := b.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "u1", Receiver: "u2", Content: "hi", CreatedAt: base})
	req.NoError(err)

	first := base.Add(time.Minute)
	got, changed, err := b.MarkDirectDelivered(ctx, msg.ID, first)
	req.NoError(err)
	req.True(changed)
	req.True(first.Equal(*got.DeliveredAt))

	got, changed, err = b.MarkDirectDelivered(ctx, msg.ID, first.Add(time.Hour))
	req.NoError(err)
	req.False(changed)
	req.True(first.Equal(*got.DeliveredAt))

	_, changed, err = b.MarkDirectRead(ctx, msg.ID, first)
	req.NoError(err)
	req.True(changed)
	got, changed, err = b.MarkDirectRead(ctx, msg.ID, first.Add(time.Hour))
	req.NoError(err)
	req.False(changed)
	req.True(first.Equal(*got.ReadAt))
}

func testDirectHistory(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()
	for i := range 5 {
		sender, receiver := domain.UserID("u1"), domain.UserID("u2")
		if i%2 == 1 {
			sender, receiver = receiver, sender
		}
		_, err := b.CreateDirectMessage(ctx, domain.DirectMessage{
			Sender: sender, Receiver: receiver, Content: fmt.Sprintf("m%d", i), CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
	}
	_, err := b.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "u1", Receiver: "u3", Content: "other", CreatedAt: base})
	req.NoError(err)

	all, err := b.ListDirectMessages(ctx, "u2", "u1", domain.Page{})
	req.NoError(err)
	req.Equal([]string{"m4", "m3", "m2", "m1", "m0"}, directContents(all))

	page, err := b.ListDirectMessages(ctx, "u1", "u2", domain.Page{Before: base.Add(3 * time.Second), Limit: 2})
	req.NoError(err)
	req.Equal([]string{"m2", "m1"}, directContents(page))
}

func testGroups(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()

	g, err := domain.NewGroup("g1", "team", "u1", []domain.UserID{"u2"}, 3, base)
	req.NoError(err)
	created, err := b.CreateGroup(ctx, g)
	req.NoError(err)
	req.Equal(domain.GroupID("g1"), created.ID)
	_, err = b.CreateGroup(ctx, g)
	req.ErrorIs(err, domain.ErrGroupExists)

	ok, err := b.IsMember(ctx, "g1", "u2")
	req.NoError(err)
	req.True(ok)
	ok, err = b.IsMember(ctx, "g1", "u3")
	req.NoError(err)
	req.False(ok)
	ok, err = b.IsMember(ctx, "nope", "u1")
	req.NoError(err)
	req.False(ok)

	role, err := b.MemberRole(ctx, "g1", "u1")
	req.NoError(err)
	req.Equal(domain.RoleAdmin, role)
	_, err = b.MemberRole(ctx, "g1", "u3")
	req.ErrorIs(err, domain.ErrNotMember)
	_, err = b.MemberRole(ctx, "nope", "u1")
	req.ErrorIs(err, domain.ErrNotFound)

	_, err = b.AddMember(ctx, "g1", "u3", domain.RoleModerator, base.Add(time.Minute))
	req.NoError(err)
	_, err = b.AddMember(ctx, "g1", "u4", "", base)
	req.ErrorIs(err, domain.ErrGroupFull)
	_, err = b.AddMember(ctx, "g1", "u3", "", base)
	req.ErrorIs(err, domain.ErrAlreadyMember)

	_, err = b.RemoveMember(ctx, "g1", "u1", base)
	req.ErrorIs(err, domain.ErrAdminRemoval)
	after, err := b.RemoveMember(ctx, "g1", "u2", base.Add(2*time.Minute))
	req.NoError(err)
	req.False(after.IsMember("u2"))

	ok, err = b.IsMember(ctx, "g1", "u2")
	req.NoError(err)
	req.False(ok)

	stored, err := b.GetGroup(ctx, "g1")
	req.NoError(err)
	req.Len(stored.Members, 2)
	_, err = b.GetGroup(ctx, "nope")
	req.ErrorIs(err, domain.ErrNotFound)
}

func testGroupMessages(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()
	createGroup(t, b, "g1", "u1", "u2")

	_, err := b.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "u1", Group: "nope", Content: "x", Type: domain.MessageText, CreatedAt: base})
	req.Error(err)

	msg, err := b.CreateGroupMessage(ctx, domain.GroupMessage{
		Sender: "u1", Group: "g1", Content: "report", Type: domain.MessageFile, CreatedAt: base,
		Attachments: []domain.Attachment{{URL: "https://files.example/r.pdf", Name: "r.pdf", MimeType: "application/pdf", Size: 42}},
	})
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Empty(msg.DeliveredTo)
	req.Empty(msg.ReadBy)

	got, err := b.GetGroupMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal(domain.MessageFile, got.Type)
	req.Equal(msg.Attachments, got.Attachments)

	req.NoError(b.TouchGroup(ctx, "g1", base.Add(time.Hour)))
	g, err := b.GetGroup(ctx, "g1")
	req.NoError(err)
	req.True(base.Add(time.Hour).Equal(g.LastActivity))
	req.ErrorIs(b.TouchGroup(ctx, "nope", base), domain.ErrNotFound)

	_, err = b.GetGroupMessage(ctx, "missing")
	req.ErrorIs(err, domain.ErrNotFound)
}

func testGroupReceipts(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()
	createGroup(t, b, "g1", "u1", "u2", "u3")
	msg, err := b.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "u1", Group: "g1", Content: "x", Type: domain.MessageText, CreatedAt: base})
	req.NoError(err)

	t1, t2 := base.Add(time.Minute), base.Add(time.Hour)
	req.NoError(b.MarkGroupDelivered(ctx, msg.ID, []domain.UserID{"u2", "u3"}, t1))
	req.NoError(b.MarkGroupDelivered(ctx, msg.ID, []domain.UserID{"u2"}, t2))
	req.ErrorIs(b.MarkGroupDelivered(ctx, "missing", []domain.UserID{"u2"}, t1), domain.ErrNotFound)

	r, changed, err := b.MarkGroupRead(ctx, msg.ID, "u2", t1)
	req.NoError(err)
	req.True(changed)
	req.True(t1.Equal(r.At))
	r, changed, err = b.MarkGroupRead(ctx, msg.ID, "u2", t2)
	req.NoError(err)
	req.False(changed)
	req.True(t1.Equal(r.At))

	got, err := b.GetGroupMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(got.DeliveredTo, 2)
	for _, d := range got.DeliveredTo {
		req.True(t1.Equal(d.At), "delivered to %s at %s", d.UserID, d.At)
	}
	req.Len(got.ReadBy, 1)
	req.Equal(domain.UserID("u2"), got.ReadBy[0].UserID)
}

// testConcurrentReceipts writes receipts on one message from many goroutines
// at once. Every write must succeed and each member must appear once.
func testConcurrentReceipts(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()
	const readers = 20
	members := make([]domain.UserID, readers)
	for i := range members {
		members[i] = domain.UserID(fmt.Sprintf("m%02d", i))
	}
	createGroup(t, b, "g1", "owner", members...)
	msg, err := b.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "owner", Group: "g1", Content: "x", Type: domain.MessageText, CreatedAt: base})
	req.NoError(err)
	dm, err := b.CreateDirectMessage(ctx, domain.DirectMessage{Sender: "u1", Receiver: "u2", Content: "hi", CreatedAt: base})
	req.NoError(err)

	var (
		wg            sync.WaitGroup
		errs          = make(chan error, 5*readers)
		repeatChanged atomic.Int32
		directChanged atomic.Int32
	)
	for i, m := range members {
		at := base.Add(time.Duration(i+1) * time.Second)
		wg.Add(5)
		go func() {
			defer wg.Done()
			_, _, err := b.MarkGroupRead(ctx, msg.ID, m, at)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- b.MarkGroupDelivered(ctx, msg.ID, []domain.UserID{m}, at)
		}()
		go func() {
			defer wg.Done()
			_, changed, err := b.MarkGroupRead(ctx, msg.ID, "owner-twin", at)
			if changed {
				repeatChanged.Add(1)
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, changed, err := b.MarkDirectRead(ctx, dm.ID, at)
			if changed {
				directChanged.Add(1)
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- b.TouchGroup(ctx, "g1", at)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	got, err := b.GetGroupMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(got.ReadBy, readers+1)
	req.Len(got.DeliveredTo, readers)
	req.EqualValues(1, repeatChanged.Load())
	req.EqualValues(1, directChanged.Load())

	direct, err := b.GetDirectMessage(ctx, dm.ID)
	req.NoError(err)
	req.NotNil(direct.ReadAt)
}

func testGroupHistory(t *testing.T, b domain.Backend) {
	req := require.New(t)
	ctx := context.Background()
	createGroup(t, b, "g1", "u1", "u2")
	createGroup(t, b, "g2", "u1", "u2")
	for i := range 4 {
		_, err := b.CreateGroupMessage(ctx, domain.GroupMessage{
			Sender: "u1", Group: "g1", Content: fmt.Sprintf("m%d", i), Type: domain.MessageText, CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
	}
	_, err := b.CreateGroupMessage(ctx, domain.GroupMessage{Sender: "u1", Group: "g2", Content: "elsewhere", Type: domain.MessageText, CreatedAt: base})
	req.NoError(err)

	all, err := b.ListGroupMessages(ctx, "g1", domain.Page{})
	req.NoError(err)
	req.Equal([]string{"m3", "m2", "m1", "m0"}, groupContents(all))

	page, err := b.ListGroupMessages(ctx, "g1", domain.Page{Before: base.Add(3 * time.Second), Limit: 2})
	req.NoError(err)
	req.Equal([]string{"m2", "m1"}, groupContents(page))
}

func testPresence(t *testing.T, b domain.Backend) {
	ctx := context.Background()
	require.NoError(t, b.SetPresence(ctx, "u1", true, base))
	require.NoError(t, b.SetPresence(ctx, "u1", false, base.Add(time.Minute)))
}

func createGroup(t *testing.T, b domain.Backend, id domain.GroupID, admin domain.UserID, members ...domain.UserID) {
	t.Helper()
	g, err := domain.NewGroup(id, string(id), admin, members, 0, base)
	require.NoError(t, err)
	_, err = b.CreateGroup(context.Background(), g)
	require.NoError(t, err)
}

func directContents(msgs []domain.DirectMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func groupContents(msgs []domain.GroupMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
