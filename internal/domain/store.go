//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks -exclude_interfaces=GroupAdmin,Backend
package domain

import (
	"context"
	"time"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page bounds a history query. Messages strictly older than Before are
// returned newest first; a zero Before means "from the latest".
type Page struct {
	Before time.Time
	Limit  int
}

// Size returns the effective page size.
func (p Page) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	}
	return p.Limit
}

// Includes reports whether a message created at t falls inside the page bound.
func (p Page) Includes(t time.Time) bool {
	return p.Before.IsZero() || t.Before(p.Before)
}

// Directory answers membership questions. Answers reflect the state at call
// time and must not be cached by callers across events.
type Directory interface {
	IsMember(ctx context.Context, group GroupID, user UserID) (bool, error)
	// MemberRole returns ErrNotMember when user is not in group and
	// ErrNotFound when the group does not exist.
	MemberRole(ctx context.Context, group GroupID, user UserID) (Role, error)
}

// Store persists messages and presence. Mark* operations are idempotent
// upserts: the first write wins and later calls report changed == false.
type Store interface {
	SetPresence(ctx context.Context, user UserID, online bool, at time.Time) error

	CreateDirectMessage(ctx context.Context, msg DirectMessage) (DirectMessage, error)
	GetDirectMessage(ctx context.Context, id MessageID) (DirectMessage, error)
	MarkDirectDelivered(ctx context.Context, id MessageID, at time.Time) (msg DirectMessage, changed bool, err error)
	MarkDirectRead(ctx context.Context, id MessageID, at time.Time) (msg DirectMessage, changed bool, err error)
	ListDirectMessages(ctx context.Context, a, b UserID, page Page) ([]DirectMessage, error)

	CreateGroupMessage(ctx context.Context, msg GroupMessage) (GroupMessage, error)
	GetGroupMessage(ctx context.Context, id MessageID) (GroupMessage, error)
	TouchGroup(ctx context.Context, group GroupID, at time.Time) error
	MarkGroupDelivered(ctx context.Context, id MessageID, users []UserID, at time.Time) error
	MarkGroupRead(ctx context.Context, id MessageID, user UserID, at time.Time) (receipt Receipt, changed bool, err error)
	ListGroupMessages(ctx context.Context, group GroupID, page Page) ([]GroupMessage, error)
}

// GroupAdmin is the administrative path that mutates membership. The core
// only observes its effects through Directory.
type GroupAdmin interface {
	CreateGroup(ctx context.Context, group Group) (Group, error)
	GetGroup(ctx context.Context, id GroupID) (Group, error)
	AddMember(ctx context.Context, group GroupID, user UserID, role Role, at time.Time) (Group, error)
	RemoveMember(ctx context.Context, group GroupID, user UserID, at time.Time) (Group, error)
}

// Backend bundles everything a storage driver provides.
type Backend interface {
	Store
	Directory
	GroupAdmin
	Close() error
}
