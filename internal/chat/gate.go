package chat

import (
	"context"
	"log/slog"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/Tyrowin/roomchat/internal/domain"
)

// Gate admits connections. Nothing else in the core runs for a connection
// that did not get an identity from Admit.
type Gate struct {
	auth Authenticator
	log  *slog.Logger
}

func NewGate(auth Authenticator, log *slog.Logger) *Gate {
	return &Gate{auth: auth, log: log.With("component", "gate")}
}

// Admit resolves credential to an identity or returns an authentication
// error. The caller must reject the connection on error; no event is sent.
func (g *Gate) Admit(ctx context.Context, credential string) (domain.UserID, error) {
	if credential == "" {
		return "", apperr.Authentication("Authentication required", nil)
	}
	user, err := g.auth.Authenticate(ctx, credential)
	if err != nil {
		g.log.Warn("connection rejected", "error", err)
		return "", apperr.Authentication("Authentication failed", err)
	}
	if user == "" {
		return "", apperr.Authentication("Authentication failed", nil)
	}
	return user, nil
}
