package domain

import "time"

// UserID is the opaque identity resolved by the Authenticator. The core never
// generates one.
type UserID string

// GroupID identifies a group.
type GroupID string

// MessageID is the canonical identifier a Store assigns on persistence.
type MessageID string

// MessageType classifies group message content.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

// SystemEvent tags what a system message describes.
type SystemEvent string

const (
	SystemUserAdded   SystemEvent = "user_added"
	SystemUserRemoved SystemEvent = "user_removed"
	SystemUserLeft    SystemEvent = "user_left"
)

// Attachment is carried verbatim; transfer semantics live outside the core.
type Attachment struct {
	URL      string `json:"url" validate:"required"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty" validate:"gte=0"`
}

// DirectMessage is a 1:1 message. DeliveredAt and ReadAt are set at most once.
type DirectMessage struct {
	ID          MessageID  `json:"id"`
	Sender      UserID     `json:"sender"`
	Receiver    UserID     `json:"receiver"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// Room returns the direct room the message belongs to.
func (m DirectMessage) Room() string {
	return DirectRoom(m.Sender, m.Receiver)
}

// MarkDelivered sets DeliveredAt if it is unset and reports whether it changed.
func (m *DirectMessage) MarkDelivered(at time.Time) bool {
	if m.DeliveredAt != nil {
		return false
	}
	at = at.UTC()
	m.DeliveredAt = &at
	return true
}

// MarkRead sets ReadAt if it is unset and reports whether it changed.
func (m *DirectMessage) MarkRead(at time.Time) bool {
	if m.ReadAt != nil {
		return false
	}
	at = at.UTC()
	m.ReadAt = &at
	return true
}

// Receipt is one member's delivered or read mark on a group message.
type Receipt struct {
	UserID UserID    `json:"userId"`
	At     time.Time `json:"at"`
}

// GroupMessage is a message posted to a group. DeliveredTo and ReadBy hold at
// most one Receipt per member.
type GroupMessage struct {
	ID          MessageID    `json:"id"`
	Sender      UserID       `json:"sender"`
	Group       GroupID      `json:"group"`
	Content     string       `json:"content"`
	Type        MessageType  `json:"messageType"`
	Attachments []Attachment `json:"attachments,omitempty"`
	SystemEvent SystemEvent  `json:"systemEvent,omitempty"`
	TargetUser  UserID       `json:"targetUser,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	EditedAt    *time.Time   `json:"editedAt,omitempty"`
	IsDeleted   bool         `json:"isDeleted"`
	DeliveredTo []Receipt    `json:"deliveredTo"`
	ReadBy      []Receipt    `json:"readBy"`
}

// MarkDeliveredTo records delivery to user unless already recorded.
func (m *GroupMessage) MarkDeliveredTo(user UserID, at time.Time) bool {
	if _, ok := findReceipt(m.DeliveredTo, user); ok {
		return false
	}
	m.DeliveredTo = append(m.DeliveredTo, Receipt{UserID: user, At: at.UTC()})
	return true
}

// MarkReadBy records a read by user unless already recorded. The returned
// receipt is the stored one, so a repeated call yields the original time.
func (m *GroupMessage) MarkReadBy(user UserID, at time.Time) (Receipt, bool) {
	if r, ok := findReceipt(m.ReadBy, user); ok {
		return r, false
	}
	r := Receipt{UserID: user, At: at.UTC()}
	m.ReadBy = append(m.ReadBy, r)
	return r, true
}

// ForgetReceipts drops every delivered and read entry of user.
func (m *GroupMessage) ForgetReceipts(user UserID) bool {
	before := len(m.DeliveredTo) + len(m.ReadBy)
	m.DeliveredTo = dropReceipt(m.DeliveredTo, user)
	m.ReadBy = dropReceipt(m.ReadBy, user)
	return before != len(m.DeliveredTo)+len(m.ReadBy)
}

func findReceipt(rs []Receipt, user UserID) (Receipt, bool) {
	for _, r := range rs {
		if r.UserID == user {
			return r, true
		}
	}
	return Receipt{}, false
}

func dropReceipt(rs []Receipt, user UserID) []Receipt {
	out := rs[:0]
	for _, r := range rs {
		if r.UserID != user {
			out = append(out, r)
		}
	}
	return out
}
