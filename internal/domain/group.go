package domain

import (
	"fmt"
	"time"
)

// Role is a member's standing in a group.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// CanManageMembers reports whether the role may add or remove other members.
func (r Role) CanManageMembers() bool {
	return r == RoleAdmin || r == RoleModerator
}

const (
	DefaultMaxMembers = 100
	MinMaxMembers     = 2
	MaxMaxMembers     = 500
)

// Member is one entry of a group's ordered member list.
type Member struct {
	User     UserID    `json:"user"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupSettings are the per-group toggles.
type GroupSettings struct {
	AllowMemberInvites bool `json:"allowMemberInvites"`
	AllowFileSharing   bool `json:"allowFileSharing"`
}

// DefaultGroupSettings returns the settings a new group starts with.
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{AllowMemberInvites: true, AllowFileSharing: true}
}

// Group has exactly one admin, who is also the member with RoleAdmin, and
// never more than MaxMembers members.
type Group struct {
	ID           GroupID       `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Admin        UserID        `json:"admin"`
	Members      []Member      `json:"members"`
	MaxMembers   int           `json:"maxMembers"`
	IsPrivate    bool          `json:"isPrivate"`
	Settings     GroupSettings `json:"settings"`
	LastActivity time.Time     `json:"lastActivity"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// NewGroup builds a group owned by admin. Extra members join with RoleMember;
// duplicates and the admin itself are ignored in that list.
func NewGroup(id GroupID, name string, admin UserID, members []UserID, maxMembers int, at time.Time) (Group, error) {
	if maxMembers == 0 {
		maxMembers = DefaultMaxMembers
	}
	g := Group{
		ID:           id,
		Name:         name,
		Admin:        admin,
		MaxMembers:   maxMembers,
		Settings:     DefaultGroupSettings(),
		LastActivity: at.UTC(),
		CreatedAt:    at.UTC(),
	}
	g.Members = append(g.Members, Member{User: admin, Role: RoleAdmin, JoinedAt: at.UTC()})
	for _, m := range members {
		if g.IsMember(m) {
			continue
		}
		g.Members = append(g.Members, Member{User: m, Role: RoleMember, JoinedAt: at.UTC()})
	}
	return g, g.Validate()
}

// Validate checks the group invariants.
func (g Group) Validate() error {
	if g.ID == "" || g.Name == "" || g.Admin == "" {
		return fmt.Errorf("%w: id, name and admin are required", ErrInvalidGroup)
	}
	if g.MaxMembers < MinMaxMembers || g.MaxMembers > MaxMaxMembers {
		return fmt.Errorf("%w: maxMembers must be between %d and %d", ErrInvalidGroup, MinMaxMembers, MaxMaxMembers)
	}
	if len(g.Members) > g.MaxMembers {
		return ErrGroupFull
	}
	admins := 0
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			admins++
			if m.User != g.Admin {
				return fmt.Errorf("%w: admin role held by %s", ErrInvalidGroup, m.User)
			}
		}
	}
	if admins != 1 {
		return fmt.Errorf("%w: group must have exactly one admin", ErrInvalidGroup)
	}
	return nil
}

// IsMember reports whether user is in the member list.
func (g Group) IsMember(user UserID) bool {
	_, ok := g.RoleOf(user)
	return ok
}

// IsAdmin reports whether user is the group's admin.
func (g Group) IsAdmin(user UserID) bool {
	return g.Admin == user
}

// RoleOf returns user's role, or false when user is not a member.
func (g Group) RoleOf(user UserID) (Role, bool) {
	for _, m := range g.Members {
		if m.User == user {
			return m.Role, true
		}
	}
	return "", false
}

// AddMember appends user with role. The admin role can not be granted here.
func (g *Group) AddMember(user UserID, role Role, at time.Time) error {
	if role == "" {
		role = RoleMember
	}
	if !role.Valid() || role == RoleAdmin {
		return fmt.Errorf("%w: role %q can not be assigned", ErrInvalidGroup, role)
	}
	if g.IsMember(user) {
		return ErrAlreadyMember
	}
	if len(g.Members) >= g.MaxMembers {
		return ErrGroupFull
	}
	g.Members = append(g.Members, Member{User: user, Role: role, JoinedAt: at.UTC()})
	g.LastActivity = at.UTC()
	return nil
}

// RemoveMember drops user from the member list. The admin is never removed.
func (g *Group) RemoveMember(user UserID, at time.Time) error {
	if g.IsAdmin(user) {
		return ErrAdminRemoval
	}
	for i, m := range g.Members {
		if m.User == user {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			g.LastActivity = at.UTC()
			return nil
		}
	}
	return ErrNotMember
}
