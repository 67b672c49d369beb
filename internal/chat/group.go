package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
	"github.com/samber/lo"
)

// GroupChannel serves group conversations. Membership is asked of the
// Directory on every mutating action; being in the room is not trusted as
// proof of membership.
type GroupChannel struct {
	store domain.Store
	dir   domain.Directory
	rooms Rooms
	log   *slog.Logger
	now   func() time.Time
}

func NewGroupChannel(store domain.Store, dir domain.Directory, rooms Rooms, log *slog.Logger, now func() time.Time) *GroupChannel {
	return &GroupChannel{store: store, dir: dir, rooms: rooms, log: log.With("component", "group"), now: now}
}

// Join adds c to the group room if its user is a current member.
func (g *GroupChannel) Join(ctx context.Context, c Conn, group domain.GroupID) error {
	if err := g.requireMember(ctx, group, c.UserID(), "Not authorized to join this group"); err != nil {
		return err
	}
	room := domain.GroupRoom(group)
	if g.rooms.InRoom(c, room) {
		return nil
	}
	g.rooms.Join(c, room)
	g.rooms.Broadcast(room, c, events.UserJoinedGroup(c.UserID(), group))
	return nil
}

// Leave removes c from the group room. It needs no authorization.
func (g *GroupChannel) Leave(_ context.Context, c Conn, group domain.GroupID) {
	room := domain.GroupRoom(group)
	if !g.rooms.InRoom(c, room) {
		return
	}
	g.rooms.Leave(c, room)
	g.rooms.Broadcast(room, nil, events.UserLeftGroup(c.UserID(), group))
}

// Send persists a group message and fans it out to the whole room, sender
// included. Delivery to the members present in the room is then recorded on
// a best-effort basis.
func (g *GroupChannel) Send(ctx context.Context, c Conn, in events.SendGroupMessage) error {
	sender := c.UserID()
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return apperr.Validation("Group Id and content are required")
	}
	msgType := in.MessageType
	if msgType == "" {
		msgType = domain.MessageText
	}
	if msgType == domain.MessageSystem || !msgType.Valid() {
		return apperr.Validation("Invalid message type")
	}
	if err := g.requireMember(ctx, in.GroupID, sender, "Not authorized to send message to this group"); err != nil {
		return err
	}

	msg, err := g.store.CreateGroupMessage(ctx, domain.GroupMessage{
		Sender:      sender,
		Group:       in.GroupID,
		Content:     content,
		Type:        msgType,
		Attachments: in.Attachments,
		CreatedAt:   g.now(),
	})
	if err != nil {
		return apperr.Persistence("Failed to send group message", err)
	}
	if err := g.store.TouchGroup(ctx, in.GroupID, msg.CreatedAt); err != nil {
		g.log.Warn("group activity not updated", "group", in.GroupID, "error", err)
	}

	room := domain.GroupRoom(in.GroupID)
	g.rooms.Broadcast(room, nil, events.ReceiveGroupMessage(msg))
	g.markDelivered(ctx, room, msg)
	return nil
}

func (g *GroupChannel) markDelivered(ctx context.Context, room string, msg domain.GroupMessage) {
	online := lo.Without(lo.Uniq(g.rooms.RoomMembers(room)), msg.Sender)
	if len(online) == 0 {
		return
	}
	if err := g.store.MarkGroupDelivered(ctx, msg.ID, online, g.now()); err != nil {
		g.log.Warn("delivered mark failed", "id", msg.ID, "members", len(online), "error", err)
	}
}

// MarkRead records that c's user read a message of the group. Senders can not
// read-receipt their own messages. A repeated read is a no-op.
func (g *GroupChannel) MarkRead(ctx context.Context, c Conn, id domain.MessageID, group domain.GroupID) error {
	reader := c.UserID()
	if err := g.requireMember(ctx, group, reader, "Not authorized"); err != nil {
		return err
	}
	msg, err := g.store.GetGroupMessage(ctx, id)
	if err != nil {
		return lookupError(err, "Message not found")
	}
	if msg.Group != group {
		return apperr.NotFound("Message not found")
	}
	if msg.Sender == reader {
		return apperr.Authorization("Cannot mark own message as read")
	}

	receipt, changed, err := g.store.MarkGroupRead(ctx, id, reader, g.now())
	if err != nil {
		return lookupError(err, "Message not found")
	}
	if !changed {
		return nil
	}
	g.rooms.Broadcast(domain.GroupRoom(group), nil, events.GroupMessageRead(id, reader, receipt.At))
	return nil
}

// Typing relays a typing indicator to the room, sender excluded. Connections
// outside the room are ignored.
func (g *GroupChannel) Typing(_ context.Context, c Conn, group domain.GroupID, stop bool) {
	room := domain.GroupRoom(group)
	if !g.rooms.InRoom(c, room) {
		return
	}
	ev := events.UserTypingInGroup(c.UserID(), group)
	if stop {
		ev = events.UserStoppedTypingInGroup(c.UserID(), group)
	}
	g.rooms.Broadcast(room, c, ev)
}

// MemberAdded notifies the room of a membership the administrative path
// already granted.
func (g *GroupChannel) MemberAdded(ctx context.Context, c Conn, in events.MemberAddedToGroup) error {
	actor := c.UserID()
	if in.AddedBy != actor {
		return apperr.Authorization("Not authorized to add members to this group")
	}
	if err := g.requireMember(ctx, in.GroupID, actor, "Not authorized to add members to this group"); err != nil {
		return err
	}
	if err := g.requireMember(ctx, in.GroupID, in.NewMemberID, "User is not a member of this group"); err != nil {
		return err
	}

	room := domain.GroupRoom(in.GroupID)
	g.rooms.Broadcast(room, nil, events.GroupMemberAdded(in.GroupID, in.NewMemberID, actor, g.now()))
	g.systemMessage(ctx, in.GroupID, actor, in.NewMemberID, domain.SystemUserAdded,
		fmt.Sprintf("%s added %s to the group", actor, in.NewMemberID))
	return nil
}

// MemberRemoved notifies the room of a removal and then evicts every live
// connection of the removed member from the room, whatever those
// connections are doing.
func (g *GroupChannel) MemberRemoved(ctx context.Context, c Conn, in events.MemberRemovedFromGroup) error {
	actor := c.UserID()
	if in.RemovedBy != actor {
		return apperr.Authorization("Not authorized to remove this member")
	}
	leaving := in.RemovedMemberID == actor
	if !leaving {
		role, err := g.role(ctx, in.GroupID, actor)
		if err != nil {
			return err
		}
		if !role.CanManageMembers() {
			return apperr.Authorization("Not authorized to remove this member")
		}
	}
	if role, err := g.dir.MemberRole(ctx, in.GroupID, in.RemovedMemberID); err == nil && role == domain.RoleAdmin {
		return apperr.Authorization("Cannot remove group admin")
	}

	room := domain.GroupRoom(in.GroupID)
	g.rooms.Broadcast(room, nil, events.GroupMemberRemoved(in.GroupID, in.RemovedMemberID, actor, g.now()))
	g.evict(room, in.RemovedMemberID)

	event, content := domain.SystemUserRemoved, fmt.Sprintf("%s removed %s", actor, in.RemovedMemberID)
	if leaving {
		event, content = domain.SystemUserLeft, fmt.Sprintf("%s left the group", actor)
	}
	g.systemMessage(ctx, in.GroupID, actor, in.RemovedMemberID, event, content)
	return nil
}

func (g *GroupChannel) evict(room string, user domain.UserID) {
	for _, conn := range g.rooms.Connections(user) {
		if g.rooms.InRoom(conn, room) {
			g.rooms.Leave(conn, room)
			g.log.Info("connection evicted", "user", user, "conn", conn.ID(), "room", room)
		}
	}
}

// systemMessage persists and broadcasts a server-generated message. It is a
// follow-up of a membership notification and never fails it.
func (g *GroupChannel) systemMessage(ctx context.Context, group domain.GroupID, actor, target domain.UserID, event domain.SystemEvent, content string) {
	msg, err := g.store.CreateGroupMessage(ctx, domain.GroupMessage{
		Sender:      actor,
		Group:       group,
		Content:     content,
		Type:        domain.MessageSystem,
		SystemEvent: event,
		TargetUser:  target,
		CreatedAt:   g.now(),
	})
	if err != nil {
		g.log.Warn("system message not persisted", "group", group, "event", event, "error", err)
		return
	}
	g.rooms.Broadcast(domain.GroupRoom(group), nil, events.ReceiveGroupMessage(msg))
}

func (g *GroupChannel) requireMember(ctx context.Context, group domain.GroupID, user domain.UserID, denied string) error {
	ok, err := g.dir.IsMember(ctx, group, user)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return apperr.Persistence("Membership check failed", err)
	}
	if !ok {
		return apperr.Authorization(denied)
	}
	return nil
}

func (g *GroupChannel) role(ctx context.Context, group domain.GroupID, user domain.UserID) (domain.Role, error) {
	role, err := g.dir.MemberRole(ctx, group, user)
	switch {
	case errors.Is(err, domain.ErrNotMember), errors.Is(err, domain.ErrNotFound):
		return "", apperr.Authorization("Not authorized to remove this member")
	case err != nil:
		return "", apperr.Persistence("Membership check failed", err)
	}
	return role, nil
}
