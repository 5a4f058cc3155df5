package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskpulse/internal/api/shared"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/service"
)

// NotificationHandler serves the in-app notification inbox.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// Create handles POST /api/notifications. Any authenticated caller may push a
// notification to any user.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := handleUserID(w, r); !ok {
		return
	}

	var req CreateNotificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.notifications.Create(r.Context(), req.notification())
	if err != nil {
		message := ""
		if MapErrorToStatusCode(err) == http.StatusInternalServerError {
			message = "Failed to create notification"
		}
		HandleAPIError(w, r, err, message)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, result)
}

// List handles GET /api/notifications?limit=N.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r)
	if !ok {
		return
	}

	limit, err := getQueryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid limit")
		return
	}

	list, err := h.notifications.List(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// MarkRead handles PATCH /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// MarkAllRead handles PATCH /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notifications")
		return
	}
	log.Debug("marked notifications read", slog.Int("count", n))
	shared.RespondWithJSON(w, r, http.StatusOK, MarkAllReadResponse{Updated: n})
}
