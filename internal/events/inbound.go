// Package events defines the wire protocol: every frame is a JSON envelope
// {"event": name, "data": payload}. Inbound frames decode into a closed set
// of typed variants that are validated before any handler sees them.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	EventJoinRoom               = "joinRoom"
	EventSendMessage            = "sendMessage"
	EventMarkAsRead             = "markAsRead"
	EventTyping                 = "typing"
	EventStopTyping             = "stopTyping"
	EventJoinGroup              = "joinGroup"
	EventLeaveGroup             = "leaveGroup"
	EventSendGroupMessage       = "sendGroupMessage"
	EventMarkGroupMessageAsRead = "markGroupMessageAsRead"
	EventGroupTyping            = "groupTyping"
	EventStopGroupTyping        = "stopGroupTyping"
	EventMemberAddedToGroup     = "memberAddedToGroup"
	EventMemberRemovedFromGroup = "memberRemovedFromGroup"
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is implemented by every decoded client event.
type Inbound interface {
	EventName() string
}

type JoinRoom struct {
	OtherUserID domain.UserID `json:"otherUserId" validate:"required"`
}

type SendMessage struct {
	Receiver domain.UserID `json:"receiver" validate:"required"`
	Content  string        `json:"content" validate:"required"`
}

type MarkAsRead struct {
	MessageID domain.MessageID `json:"messageId" validate:"required"`
}

type Typing struct {
	Receiver domain.UserID `json:"receiver" validate:"required"`
}

type StopTyping struct {
	Receiver domain.UserID `json:"receiver" validate:"required"`
}

type JoinGroup struct {
	GroupID domain.GroupID `json:"groupId" validate:"required"`
}

type LeaveGroup struct {
	GroupID domain.GroupID `json:"groupId" validate:"required"`
}

type SendGroupMessage struct {
	GroupID     domain.GroupID      `json:"groupId" validate:"required"`
	Content     string              `json:"content" validate:"required"`
	MessageType domain.MessageType  `json:"messageType,omitempty" validate:"omitempty,oneof=text image file"`
	Attachments []domain.Attachment `json:"attachments,omitempty" validate:"omitempty,dive"`
}

type MarkGroupMessageAsRead struct {
	MessageID domain.MessageID `json:"messageId" validate:"required"`
	GroupID   domain.GroupID   `json:"groupId" validate:"required"`
}

type GroupTyping struct {
	GroupID domain.GroupID `json:"groupId" validate:"required"`
}

type StopGroupTyping struct {
	GroupID domain.GroupID `json:"groupId" validate:"required"`
}

type MemberAddedToGroup struct {
	GroupID     domain.GroupID `json:"groupId" validate:"required"`
	NewMemberID domain.UserID  `json:"newMemberId" validate:"required"`
	AddedBy     domain.UserID  `json:"addedBy" validate:"required"`
}

type MemberRemovedFromGroup struct {
	GroupID         domain.GroupID `json:"groupId" validate:"required"`
	RemovedMemberID domain.UserID  `json:"removedMemberId" validate:"required"`
	RemovedBy       domain.UserID  `json:"removedBy" validate:"required"`
}

func (JoinRoom) EventName() string               { return EventJoinRoom }
func (SendMessage) EventName() string            { return EventSendMessage }
func (MarkAsRead) EventName() string             { return EventMarkAsRead }
func (Typing) EventName() string                 { return EventTyping }
func (StopTyping) EventName() string             { return EventStopTyping }
func (JoinGroup) EventName() string              { return EventJoinGroup }
func (LeaveGroup) EventName() string             { return EventLeaveGroup }
func (SendGroupMessage) EventName() string       { return EventSendGroupMessage }
func (MarkGroupMessageAsRead) EventName() string { return EventMarkGroupMessageAsRead }
func (GroupTyping) EventName() string            { return EventGroupTyping }
func (StopGroupTyping) EventName() string        { return EventStopGroupTyping }
func (MemberAddedToGroup) EventName() string     { return EventMemberAddedToGroup }
func (MemberRemovedFromGroup) EventName() string { return EventMemberRemovedFromGroup }

var decoders = map[string]func() Inbound{
	EventJoinRoom:               func() Inbound { return &JoinRoom{} },
	EventSendMessage:            func() Inbound { return &SendMessage{} },
	EventMarkAsRead:             func() Inbound { return &MarkAsRead{} },
	EventTyping:                 func() Inbound { return &Typing{} },
	EventStopTyping:             func() Inbound { return &StopTyping{} },
	EventJoinGroup:              func() Inbound { return &JoinGroup{} },
	EventLeaveGroup:             func() Inbound { return &LeaveGroup{} },
	EventSendGroupMessage:       func() Inbound { return &SendGroupMessage{} },
	EventMarkGroupMessageAsRead: func() Inbound { return &MarkGroupMessageAsRead{} },
	EventGroupTyping:            func() Inbound { return &GroupTyping{} },
	EventStopGroupTyping:        func() Inbound { return &StopGroupTyping{} },
	EventMemberAddedToGroup:     func() Inbound { return &MemberAddedToGroup{} },
	EventMemberRemovedFromGroup: func() Inbound { return &MemberRemovedFromGroup{} },
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses one frame into its typed variant. The returned event is a
// value, never a pointer. On failure the envelope's event name is still
// returned when it could be read, so the caller can scope the error.
func Decode(raw []byte) (string, Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, apperr.Wrap(apperr.KindValidation, "Malformed event", err)
	}
	newEvent, ok := decoders[env.Event]
	if !ok {
		return env.Event, nil, apperr.Validation(fmt.Sprintf("Unknown event %q", env.Event))
	}
	ev := newEvent()
	if len(env.Data) == 0 || string(env.Data) == "null" {
		env.Data = []byte("{}")
	}
	if err := json.Unmarshal(env.Data, ev); err != nil {
		return env.Event, nil, apperr.Wrap(apperr.KindValidation, "Malformed payload for "+env.Event, err)
	}
	if err := validate.Struct(ev); err != nil {
		return env.Event, nil, validationError(err)
	}
	return env.Event, reflect.ValueOf(ev).Elem().Interface().(Inbound), nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, "Invalid payload", err)
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return apperr.Validation(field + " is required")
	case "oneof":
		return apperr.Validation(fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
	default:
		return apperr.Validation(fmt.Sprintf("%s is invalid", field))
	}
}
