package api

import (
	"net/http"

	"github.com/google/uuid"
)

// WSServer upgrades a request into a realtime connection for a user.
type WSServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID)
}

// RealtimeHandler serves GET /ws.
type RealtimeHandler struct {
	hub WSServer
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(hub WSServer) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Connect attaches the authenticated user to the hub.
func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r)
	if !ok {
		return
	}
	h.hub.ServeWS(w, r, userID)
}
