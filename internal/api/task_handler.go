package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/api/shared"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/service"
)

// TaskHandler serves the task endpoints under /api/tasks.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CheckAll handles POST /api/tasks/check-all by running a full reminder and
// overdue pass.
func (h *TaskHandler) CheckAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := handleUserID(w, r); !ok {
		return
	}

	report, err := h.tasks.CheckAllTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Check handles POST /api/tasks/{id}/check.
func (h *TaskHandler) Check(w http.ResponseWriter, r *http.Request) {
	_, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	report, err := h.tasks.CheckTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Complete handles POST /api/tasks/{id}/complete. A recurring task answers
// with its next instance and any subtasks that could not be cloned.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	outcome, err := h.tasks.CompleteTask(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := newCompleteTaskResponse(taskID, outcome)
	log.Debug("task completed",
		slog.String("task_id", taskID.String()),
		slog.Bool("recurred", resp.Next != nil),
		slog.Int("clone_failures", len(resp.Failures)))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// StopRecurrence handles DELETE /api/tasks/{id}/recurrence.
func (h *TaskHandler) StopRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.StopRecurrence(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusNoContent, nil)
}

// Reschedule handles PUT /api/tasks/{id}/due-date.
func (h *TaskHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req RescheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.tasks.RescheduleTask(r.Context(), userID, taskID, req.DueDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Comment handles POST /api/tasks/{id}/comments. The comment itself is not
// stored here; the endpoint only fans out mention and comment notifications.
func (h *TaskHandler) Comment(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.tasks.CommentOnTask(r.Context(), domain.Comment{
		TaskID:   taskID,
		AuthorID: userID,
		Text:     req.Text,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if result.Mentioned == nil {
		result.Mentioned = []uuid.UUID{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
