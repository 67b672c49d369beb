// Package memory is a process-local Store, Directory and GroupAdmin. It is
// the default driver for development and the backend of the core's tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Presence is the durable online state of a user.
type Presence struct {
	Online   bool
	LastSeen time.Time
}

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu            sync.RWMutex
	presence      map[domain.UserID]Presence
	direct        map[domain.MessageID]domain.DirectMessage
	groups        map[domain.GroupID]domain.Group
	groupMessages map[domain.MessageID]domain.GroupMessage
	resetOnRejoin bool
	newID         func() string
}

var _ domain.Backend = (*Store)(nil)

type Option func(*Store)

// WithReceiptReset drops a member's delivered and read entries in a group
// when they are added to it again.
func WithReceiptReset(reset bool) Option {
	return func(s *Store) { s.resetOnRejoin = reset }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func New(opts ...Option) *Store {
	s := &Store{
		presence:      make(map[domain.UserID]Presence),
		direct:        make(map[domain.MessageID]domain.DirectMessage),
		groups:        make(map[domain.GroupID]domain.Group),
		groupMessages: make(map[domain.MessageID]domain.GroupMessage),
		newID:         func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return nil }

// Presence returns the last stored presence of user.
func (s *Store) Presence(user domain.UserID) (Presence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[user]
	return p, ok
}

func (s *Store) SetPresence(_ context.Context, user domain.UserID, online bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[user] = Presence{Online: online, LastSeen: at.UTC()}
	return nil
}

func (s *Store) CreateDirectMessage(_ context.Context, msg domain.DirectMessage) (domain.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = domain.MessageID(s.newID())
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredAt, msg.ReadAt = nil, nil
	s.direct[msg.ID] = msg
	return msg, nil
}

func (s *Store) GetDirectMessage(_ context.Context, id domain.MessageID) (domain.DirectMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.direct[id]
	if !ok {
		return domain.DirectMessage{}, domain.ErrNotFound
	}
	return msg, nil
}

func (s *Store) MarkDirectDelivered(_ context.Context, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	return s.updateDirect(id, func(m *domain.DirectMessage) bool { return m.MarkDelivered(at) })
}

func (s *Store) MarkDirectRead(_ context.Context, id domain.MessageID, at time.Time) (domain.DirectMessage, bool, error) {
	return s.updateDirect(id, func(m *domain.DirectMessage) bool { return m.MarkRead(at) })
}

func (s *Store) updateDirect(id domain.MessageID, fn func(*domain.DirectMessage) bool) (domain.DirectMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.direct[id]
	if !ok {
		return domain.DirectMessage{}, false, domain.ErrNotFound
	}
	changed := fn(&msg)
	s.direct[id] = msg
	return msg, changed, nil
}

func (s *Store) ListDirectMessages(_ context.Context, a, b domain.UserID, page domain.Page) ([]domain.DirectMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room := domain.DirectRoom(a, b)
	out := lo.Filter(lo.Values(s.direct), func(m domain.DirectMessage, _ int) bool {
		return m.Room() == room && page.Includes(m.CreatedAt)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return lo.Subset(out, 0, uint(page.Size())), nil
}

func (s *Store) CreateGroupMessage(_ context.Context, msg domain.GroupMessage) (domain.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[msg.Group]; !ok {
		return domain.GroupMessage{}, domain.ErrNotFound
	}
	msg.ID = domain.MessageID(s.newID())
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.DeliveredTo = []domain.Receipt{}
	msg.ReadBy = []domain.Receipt{}
	s.groupMessages[msg.ID] = msg
	return cloneGroupMessage(msg), nil
}

func (s *Store) GetGroupMessage(_ context.Context, id domain.MessageID) (domain.GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.groupMessages[id]
	if !ok {
		return domain.GroupMessage{}, domain.ErrNotFound
	}
	return cloneGroupMessage(msg), nil
}

func (s *Store) TouchGroup(_ context.Context, id domain.GroupID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.LastActivity = at.UTC()
	s.groups[id] = g
	return nil
}

func (s *Store) MarkGroupDelivered(_ context.Context, id domain.MessageID, users []domain.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.groupMessages[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, u := range users {
		msg.MarkDeliveredTo(u, at)
	}
	s.groupMessages[id] = msg
	return nil
}

func (s *Store) MarkGroupRead(_ context.Context, id domain.MessageID, user domain.UserID, at time.Time) (domain.Receipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.groupMessages[id]
	if !ok {
		return domain.Receipt{}, false, domain.ErrNotFound
	}
	r, changed := msg.MarkReadBy(user, at)
	s.groupMessages[id] = msg
	return r, changed, nil
}

func (s *Store) ListGroupMessages(_ context.Context, group domain.GroupID, page domain.Page) ([]domain.GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.FilterMap(lo.Values(s.groupMessages), func(m domain.GroupMessage, _ int) (domain.GroupMessage, bool) {
		return cloneGroupMessage(m), m.Group == group && !m.IsDeleted && page.Includes(m.CreatedAt)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return lo.Subset(out, 0, uint(page.Size())), nil
}

func (s *Store) IsMember(_ context.Context, group domain.GroupID, user domain.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return false, nil
	}
	return g.IsMember(user), nil
}

func (s *Store) MemberRole(_ context.Context, group domain.GroupID, user domain.UserID) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[group]
	if !ok {
		return "", domain.ErrNotFound
	}
	role, ok := g.RoleOf(user)
	if !ok {
		return "", domain.ErrNotMember
	}
	return role, nil
}

func (s *Store) CreateGroup(_ context.Context, g domain.Group) (domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = domain.GroupID(s.newID())
	}
	if err := g.Validate(); err != nil {
		return domain.Group{}, err
	}
	if _, exists := s.groups[g.ID]; exists {
		return domain.Group{}, domain.ErrGroupExists
	}
	s.groups[g.ID] = cloneGroup(g)
	return cloneGroup(g), nil
}

func (s *Store) GetGroup(_ context.Context, id domain.GroupID) (domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (s *Store) AddMember(_ context.Context, id domain.GroupID, user domain.UserID, role domain.Role, at time.Time) (domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	g = cloneGroup(g)
	if err := g.AddMember(user, role, at); err != nil {
		return domain.Group{}, err
	}
	s.groups[id] = g
	if s.resetOnRejoin {
		for mid, m := range s.groupMessages {
			if m.Group == id && m.ForgetReceipts(user) {
				s.groupMessages[mid] = m
			}
		}
	}
	return cloneGroup(g), nil
}

func (s *Store) RemoveMember(_ context.Context, id domain.GroupID, user domain.UserID, at time.Time) (domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	g = cloneGroup(g)
	if err := g.RemoveMember(user, at); err != nil {
		return domain.Group{}, err
	}
	s.groups[id] = g
	return cloneGroup(g), nil
}

func cloneGroup(g domain.Group) domain.Group {
	g.Members = slices.Clone(g.Members)
	return g
}

func cloneGroupMessage(m domain.GroupMessage) domain.GroupMessage {
	m.Attachments = slices.Clone(m.Attachments)
	m.DeliveredTo = slices.Clone(m.DeliveredTo)
	m.ReadBy = slices.Clone(m.ReadBy)
	return m
}
