package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Tyrowin/roomchat/internal/apperr"
	"github.com/gorilla/websocket"
)

// credential returns the bearer token of the upgrade request, taken from the
// Authorization header or else the token query parameter.
func credential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// WebSocketHandler admits the caller, upgrades the connection and hands the
// new Client to the hub. A request that fails admission gets 401 and is
// never upgraded.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	origins := newOriginPolicy(hub.opts.AllowedOrigins, hub.log)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, err := hub.dispatcher.Admit(r.Context(), credential(r))
		if err != nil {
			http.Error(w, apperr.Message(err), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr, user)

		// The hub launches the pump goroutines.
		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}

// HealthHandler reports that the server is up.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "roomchat server is running!")
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
}
