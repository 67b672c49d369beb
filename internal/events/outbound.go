package events

import (
	"encoding/json"
	"time"

	"github.com/Tyrowin/roomchat/internal/domain"
)

// Outbound event names.
const (
	EventUserOnline               = "user_online"
	EventUserOffline              = "user_offline"
	EventReceiveMessage           = "receiveMessage"
	EventErrorMessage             = "errorMessage"
	EventMessageRead              = "messageRead"
	EventUserJoinedGroup          = "userJoinedGroup"
	EventUserLeftGroup            = "userLeftGroup"
	EventReceiveGroupMessage      = "receiveGroupMessage"
	EventGroupMessageRead         = "groupMessageRead"
	EventUserTypingInGroup        = "userTypingInGroup"
	EventUserStoppedTypingInGroup = "userStoppedTypingInGroup"
	EventGroupMemberAdded         = "groupMemberAdded"
	EventGroupMemberRemoved       = "groupMemberRemoved"
	EventError                    = "error"
)

// Outbound is one server-to-client frame.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Encode renders the frame as JSON.
func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}

type UserPresence struct {
	UserID domain.UserID `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type MessageReadPayload struct {
	MessageID domain.MessageID `json:"messageId"`
	ReadAt    time.Time        `json:"readAt"`
}

type TypingPayload struct {
	SenderID domain.UserID `json:"senderId"`
}

type GroupUserPayload struct {
	UserID  domain.UserID  `json:"userId"`
	GroupID domain.GroupID `json:"groupId"`
}

type GroupMessageReadPayload struct {
	MessageID domain.MessageID `json:"messageId"`
	UserID    domain.UserID    `json:"userId"`
	ReadAt    time.Time        `json:"readAt"`
}

type GroupMemberAddedPayload struct {
	GroupID     domain.GroupID `json:"groupId"`
	NewMemberID domain.UserID  `json:"newMemberId"`
	AddedBy     domain.UserID  `json:"addedBy"`
	Timestamp   time.Time      `json:"timestamp"`
}

type GroupMemberRemovedPayload struct {
	GroupID         domain.GroupID `json:"groupId"`
	RemovedMemberID domain.UserID  `json:"removedMemberId"`
	RemovedBy       domain.UserID  `json:"removedBy"`
	Timestamp       time.Time      `json:"timestamp"`
}

func UserOnline(user domain.UserID) Outbound {
	return Outbound{Event: EventUserOnline, Data: UserPresence{UserID: user}}
}

func UserOffline(user domain.UserID) Outbound {
	return Outbound{Event: EventUserOffline, Data: UserPresence{UserID: user}}
}

func ReceiveMessage(msg domain.DirectMessage) Outbound {
	return Outbound{Event: EventReceiveMessage, Data: msg}
}

func ErrorMessage(message string) Outbound {
	return Outbound{Event: EventErrorMessage, Data: ErrorPayload{Message: message}}
}

func MessageRead(id domain.MessageID, at time.Time) Outbound {
	return Outbound{Event: EventMessageRead, Data: MessageReadPayload{MessageID: id, ReadAt: at}}
}

func TypingFrom(sender domain.UserID) Outbound {
	return Outbound{Event: EventTyping, Data: TypingPayload{SenderID: sender}}
}

func StopTypingFrom(sender domain.UserID) Outbound {
	return Outbound{Event: EventStopTyping, Data: TypingPayload{SenderID: sender}}
}

func UserJoinedGroup(user domain.UserID, group domain.GroupID) Outbound {
	return Outbound{Event: EventUserJoinedGroup, Data: GroupUserPayload{UserID: user, GroupID: group}}
}

func UserLeftGroup(user domain.UserID, group domain.GroupID) Outbound {
	return Outbound{Event: EventUserLeftGroup, Data: GroupUserPayload{UserID: user, GroupID: group}}
}

func ReceiveGroupMessage(msg domain.GroupMessage) Outbound {
	return Outbound{Event: EventReceiveGroupMessage, Data: msg}
}

func GroupMessageRead(id domain.MessageID, user domain.UserID, at time.Time) Outbound {
	return Outbound{Event: EventGroupMessageRead, Data: GroupMessageReadPayload{MessageID: id, UserID: user, ReadAt: at}}
}

func UserTypingInGroup(user domain.UserID, group domain.GroupID) Outbound {
	return Outbound{Event: EventUserTypingInGroup, Data: GroupUserPayload{UserID: user, GroupID: group}}
}

func UserStoppedTypingInGroup(user domain.UserID, group domain.GroupID) Outbound {
	return Outbound{Event: EventUserStoppedTypingInGroup, Data: GroupUserPayload{UserID: user, GroupID: group}}
}

func GroupMemberAdded(group domain.GroupID, member, by domain.UserID, at time.Time) Outbound {
	return Outbound{Event: EventGroupMemberAdded, Data: GroupMemberAddedPayload{
		GroupID: group, NewMemberID: member, AddedBy: by, Timestamp: at,
	}}
}

func GroupMemberRemoved(group domain.GroupID, member, by domain.UserID, at time.Time) Outbound {
	return Outbound{Event: EventGroupMemberRemoved, Data: GroupMemberRemovedPayload{
		GroupID: group, RemovedMemberID: member, RemovedBy: by, Timestamp: at,
	}}
}

func Error(message string) Outbound {
	return Outbound{Event: EventError, Data: ErrorPayload{Message: message}}
}

// ErrorFor returns the scoped error frame for a failure while handling the
// inbound event name: direct conversation events answer with errorMessage,
// everything else with error.
func ErrorFor(name, message string) Outbound {
	switch name {
	case EventJoinRoom, EventSendMessage, EventMarkAsRead, EventTyping, EventStopTyping:
		return ErrorMessage(message)
	}
	return Error(message)
}
