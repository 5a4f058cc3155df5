package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/api"
	"github.com/phrazzld/taskpulse/internal/api/middleware"
	"github.com/phrazzld/taskpulse/internal/api/shared"
	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/phrazzld/taskpulse/internal/service/auth"
	"github.com/phrazzld/taskpulse/internal/service/mention"
	"github.com/phrazzld/taskpulse/internal/service/recurrence"
	"github.com/phrazzld/taskpulse/internal/service/reminder"
	"github.com/phrazzld/taskpulse/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

type apiFixture struct {
	store  *memstore.Store
	jwt    auth.JWTService
	router http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log, _ := logger.NewTestLogger(t)

	s := memstore.New()
	prefs := notify.NewPreferenceResolver(s.Preferences())
	dispatcher := notify.NewDispatcher(time.Second, log, notify.Stage{notify.NewInAppChannel(s.Notifications())})
	notifier := notify.NewNotifier(
		notify.NewGuard(s.Notifications(), s.Claims(), time.UTC),
		prefs,
		dispatcher,
		log,
	)
	deps := reminder.Deps{
		Tasks:     s.Tasks(),
		Projects:  s.Projects(),
		Schedules: s.Schedules(),
		Notifier:  notifier,
		Location:  time.UTC,
		Logger:    log,
	}
	reminders := reminder.NewEngine(deps)
	tasks, err := service.NewTaskService(service.TaskDeps{
		Tasks:      s.Tasks(),
		Reminders:  reminders,
		Overdue:    reminder.NewOverdueEngine(deps),
		Recurrence: recurrence.NewEngine(s, s.Tasks(), reminders, time.UTC, log),
		Mentions:   mention.NewNotifier(s.Tasks(), mention.NewResolver(s.Users()), notifier, log),
		Notifier:   notifier,
		Location:   time.UTC,
		Logger:     log,
	})
	require.NoError(t, err)
	notifications, err := service.NewNotificationService(s.Notifications(), prefs, dispatcher, log)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	taskHandler := api.NewTaskHandler(tasks, log)
	notificationHandler := api.NewNotificationHandler(notifications, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/tasks/check-all", taskHandler.CheckAll)
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Post("/check", taskHandler.Check)
			r.Post("/complete", taskHandler.Complete)
			r.Delete("/recurrence", taskHandler.StopRecurrence)
			r.Put("/due-date", taskHandler.Reschedule)
			r.Post("/comments", taskHandler.Comment)
		})
		r.Get("/notifications", notificationHandler.List)
		r.Post("/notifications", notificationHandler.Create)
		r.Patch("/notifications/read-all", notificationHandler.MarkAllRead)
		r.Patch("/notifications/{id}/read", notificationHandler.MarkRead)
	})

	return &apiFixture{store: s, jwt: jwtService, router: r}
}

func (f *apiFixture) addTask(t *testing.T, owner uuid.UUID, dueInDays int, rule domain.RecurrenceRule, collaborators ...uuid.UUID) *domain.Task {
	t.Helper()
	due := domain.DateOf(time.Now(), time.UTC).AddDate(0, 0, dueInDays).Add(12 * time.Hour)
	task, err := domain.NewTask(owner, "Ship release notes", &due)
	require.NoError(t, err)
	task.RecurrenceRule = rule
	task.CollaboratorIDs = collaborators
	require.NoError(t, f.store.Tasks().Create(context.Background(), task))
	return task
}

func (f *apiFixture) do(t *testing.T, userID uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		token, err := f.jwt.GenerateToken(context.Background(), userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCompleteTaskEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	task := f.addTask(t, owner, 10, domain.RecurrenceWeekly)

	rec := f.do(t, owner, http.MethodPost, "/api/tasks/"+task.ID.String()+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[api.CompleteTaskResponse](t, rec)
	assert.Equal(t, task.ID, resp.TaskID)
	require.NotNil(t, resp.Next)
	assert.True(t, task.DueDate.AddDate(0, 0, 7).Equal(*resp.Next.DueDate))
	assert.Empty(t, resp.Subtasks)
	assert.Empty(t, resp.Failures)

	rec = f.do(t, owner, http.MethodPost, "/api/tasks/"+task.ID.String()+"/complete", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Task is already completed")
}

func TestCompleteOneOffTaskEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	task := f.addTask(t, owner, 3, domain.RecurrenceNone)

	rec := f.do(t, owner, http.MethodPost, "/api/tasks/"+task.ID.String()+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "next")
	assert.JSONEq(t, `[]`, string(raw["subtasks"]))
	assert.JSONEq(t, `[]`, string(raw["failures"]))
}

func TestTaskEndpointErrors(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	task := f.addTask(t, owner, 3, domain.RecurrenceNone)

	tests := []struct {
		name       string
		user       uuid.UUID
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing token",
			method:     http.MethodPost,
			path:       "/api/tasks/" + task.ID.String() + "/complete",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authorization header required",
		},
		{
			name:       "malformed task ID",
			user:       owner,
			method:     http.MethodPost,
			path:       "/api/tasks/not-a-uuid/complete",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid ID",
		},
		{
			name:       "unknown task",
			user:       owner,
			method:     http.MethodPost,
			path:       "/api/tasks/" + uuid.NewString() + "/complete",
			wantStatus: http.StatusNotFound,
			wantError:  "Task not found",
		},
		{
			name:       "not a stakeholder",
			user:       uuid.New(),
			method:     http.MethodPost,
			path:       "/api/tasks/" + task.ID.String() + "/complete",
			wantStatus: http.StatusForbidden,
			wantError:  "You are not a stakeholder of this task",
		},
		{
			name:       "stop recurrence of a one-off task",
			user:       owner,
			method:     http.MethodDelete,
			path:       "/api/tasks/" + task.ID.String() + "/recurrence",
			wantStatus: http.StatusConflict,
			wantError:  "Task does not recur",
		},
		{
			name:       "reschedule without a body",
			user:       owner,
			method:     http.MethodPut,
			path:       "/api/tasks/" + task.ID.String() + "/due-date",
			wantStatus: http.StatusBadRequest,
			wantError:  "Request body is required",
		},
		{
			name:       "reschedule with both fields",
			user:       owner,
			method:     http.MethodPut,
			path:       "/api/tasks/" + task.ID.String() + "/due-date",
			body:       `{"due_date":"2030-01-01T12:00:00Z","clear_due_date":true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "reschedule with unknown field",
			user:       owner,
			method:     http.MethodPut,
			path:       "/api/tasks/" + task.ID.String() + "/due-date",
			body:       `{"due":"2030-01-01T12:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty comment",
			user:       owner,
			method:     http.MethodPost,
			path:       "/api/tasks/" + task.ID.String() + "/comments",
			body:       `{"text":""}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid text: required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.user, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[map[string]string](t, rec)["error"])
			}
		})
	}
}

func TestStopRecurrenceEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	task := f.addTask(t, owner, 3, domain.RecurrenceMonthly)

	rec := f.do(t, owner, http.MethodDelete, "/api/tasks/"+task.ID.String()+"/recurrence", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	stored, err := f.store.Tasks().GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRecurring())
}

func TestRescheduleEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	owner, collaborator := uuid.New(), uuid.New()
	task := f.addTask(t, owner, 20, domain.RecurrenceNone, collaborator)

	due := domain.DateOf(time.Now(), time.UTC).AddDate(0, 0, 3).Add(12 * time.Hour)
	body := `{"due_date":"` + due.Format(time.RFC3339) + `"}`
	rec := f.do(t, collaborator, http.MethodPut, "/api/tasks/"+task.ID.String()+"/due-date", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[service.RescheduleResult](t, rec)
	assert.True(t, due.Equal(*result.Task.DueDate))
	assert.Equal(t, 2, result.Notices.Sent)
	assert.Equal(t, 2, result.Reminders.Sent, "the 3-day reminder fires for both stakeholders")

	rec = f.do(t, owner, http.MethodPut, "/api/tasks/"+task.ID.String()+"/due-date", `{"clear_due_date":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result = decode[service.RescheduleResult](t, rec)
	assert.Nil(t, result.Task.DueDate)
}

func TestCommentEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	author, john, bystander := uuid.New(), uuid.New(), uuid.New()
	f.store.AddUser(domain.User{ID: john, Name: "john"})
	task := f.addTask(t, author, 5, domain.RecurrenceNone, john, bystander)

	rec := f.do(t, author, http.MethodPost, "/api/tasks/"+task.ID.String()+"/comments", `{"text":"@john please check"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[mention.Result](t, rec)
	assert.Equal(t, []uuid.UUID{john}, result.Mentioned)
	assert.Equal(t, 2, result.Sent, "john is mentioned and the bystander hears about the comment")

	rec = f.do(t, author, http.MethodPost, "/api/tasks/"+task.ID.String()+"/comments", `{"text":"no one in particular"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode[map[string]json.RawMessage](t, rec)["mentioned"]))
}

func TestCheckEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.New()
	task := f.addTask(t, owner, 1, domain.RecurrenceNone)

	rec := f.do(t, owner, http.MethodPost, "/api/tasks/"+task.ID.String()+"/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reminder.Report{Checked: 1, Sent: 1}, decode[reminder.Report](t, rec))

	rec = f.do(t, owner, http.MethodPost, "/api/tasks/check-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[service.CheckReport](t, rec)
	assert.Equal(t, 0, report.Reminders.Sent, "the reminder already went out")
	assert.Equal(t, 1, report.Reminders.Skipped)
}

func TestNotificationEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	user := uuid.New()
	for i := 0; i < 3; i++ {
		n := &domain.Notification{
			ID:        uuid.New(),
			UserID:    user,
			Type:      domain.NotificationMention,
			Title:     "You were mentioned",
			Message:   "hello",
			Priority:  domain.PriorityHigh,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, f.store.Notifications().Create(ctx, n))
	}

	rec := f.do(t, user, http.MethodGet, "/api/notifications?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[service.NotificationList](t, rec)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, 3, list.Unread)

	rec = f.do(t, user, http.MethodGet, "/api/notifications?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, uuid.New(), http.MethodPatch, "/api/notifications/"+list.Notifications[0].ID.String()+"/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user's notification is invisible")

	rec = f.do(t, user, http.MethodPatch, "/api/notifications/"+list.Notifications[0].ID.String()+"/read", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, user, http.MethodPatch, "/api/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.MarkAllReadResponse{Updated: 2}, decode[api.MarkAllReadResponse](t, rec))

	rec = f.do(t, user, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[service.NotificationList](t, rec).Unread)
}

func TestCreateNotificationEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	caller, recipient := uuid.New(), uuid.New()

	body := `{"user_id":"` + recipient.String() + `","type":"deploy_finished","title":"Deploy finished","message":"Release 2.0 is live"}`
	rec := f.do(t, caller, http.MethodPost, "/api/notifications", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[service.CreateResult](t, rec)
	assert.Equal(t, recipient, result.Notification.UserID)
	assert.Equal(t, domain.PriorityMedium, result.Notification.Priority)
	assert.Equal(t, []service.ChannelOutcome{{Channel: notify.ChannelInApp, Status: notify.StatusDelivered}}, result.Channels)

	rec = f.do(t, recipient, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[service.NotificationList](t, rec)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, result.Notification.ID, list.Notifications[0].ID)

	tests := []struct {
		name    string
		user    uuid.UUID
		body    string
		status  int
		message string
	}{
		{"missing token", uuid.Nil, body, http.StatusUnauthorized, "Authorization header required"},
		{"missing title", caller, `{"user_id":"` + recipient.String() + `","type":"deploy_finished"}`, http.StatusBadRequest, "Invalid title: required field"},
		{"malformed recipient", caller, `{"user_id":"nope","type":"x","title":"y"}`, http.StatusBadRequest, "Invalid userid: validation failed"},
		{"unknown priority", caller, `{"user_id":"` + recipient.String() + `","type":"x","title":"y","priority":"urgent"}`, http.StatusBadRequest, "Invalid priority: invalid value"},
		{"empty body", caller, "", http.StatusBadRequest, "Request body is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.user, http.MethodPost, "/api/notifications", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestNotificationListEmpty(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, uuid.New(), http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"notifications":[]`), rec.Body.String())
}

type fakeHub struct {
	served uuid.UUID
}

func (h *fakeHub) ServeWS(w http.ResponseWriter, _ *http.Request, userID uuid.UUID) {
	h.served = userID
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func TestRealtimeHandlerRequiresUser(t *testing.T) {
	hub := &fakeHub{}
	h := api.NewRealtimeHandler(hub)

	rec := httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, uuid.Nil, hub.served)

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req = req.WithContext(shared.WithUserID(req.Context(), userID))
	rec = httptest.NewRecorder()
	h.Connect(rec, req)
	assert.Equal(t, userID, hub.served)
}
