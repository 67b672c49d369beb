package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes returns the router serving the WebSocket endpoint and health
// checks.
func SetupRoutes(hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	r.HandleFunc("/ws", WebSocketHandler(hub)).Methods(http.MethodGet)
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet)
	return r
}
