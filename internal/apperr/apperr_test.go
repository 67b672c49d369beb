package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindAndMessage(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name     string
		err      error
		kind     Kind
		message  string
		hasCause bool
	}{
		{"authentication", Authentication("invalid token", cause), KindAuthentication, "invalid token", true},
		{"authorization", Authorization("Not authorized"), KindAuthorization, "Not authorized", false},
		{"validation", Validation("content is required"), KindValidation, "content is required", false},
		{"persistence", Persistence("Failed to send message", cause), KindPersistence, "Failed to send message", true},
		{"not found", NotFound("Message not found"), KindNotFound, "Message not found", false},
		{"plain error", cause, KindInternal, "Internal server error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			wrapped := fmt.Errorf("handler: %w", tt.err)
			req.Equal(tt.kind, KindOf(wrapped))
			req.Equal(tt.message, Message(wrapped))
			req.Equal(tt.hasCause, errors.Is(wrapped, cause))
		})
	}
}

func TestErrorString(t *testing.T) {
	req := require.New(t)
	req.Equal("boom", New(KindInternal, "boom").Error())
	req.Equal("save failed: disk full", Persistence("save failed", errors.New("disk full")).Error())
}
