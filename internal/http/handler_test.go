package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"task-reminder/internal/model"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

type apiResponse struct {
	Status   string       `json:"status"`
	Message  string       `json:"message"`
	ID       uint         `json:"id"`
	RemindAt *time.Time   `json:"remind_at"`
	Count    int          `json:"count"`
	Task     model.Task   `json:"task"`
	Tasks    []model.Task `json:"tasks"`
}

func setupServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tasks := service.NewTaskService(
		repository.NewTaskRepository(db),
		service.NewDueTimeResolver(time.UTC, true),
		nil,
	)
	return NewServer(NewHandler(tasks), 0), db
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, resp
}

func TestCreateTask(t *testing.T) {
	e, _ := setupServer(t)

	rec, resp := doJSON(t, e, http.MethodPost, "/api/tasks",
		`{"user_id":42,"text":"Pay rent","date":"2025-03-01","time":"09:00","is_reminder":true,"emoji":"💰"}`)

	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("expected 200 ok, got %d %s", rec.Code, rec.Body.String())
	}
	if resp.ID == 0 || resp.Task.ID != resp.ID {
		t.Errorf("expected id in response, got %+v", resp)
	}
	want := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if resp.RemindAt == nil || !resp.RemindAt.Equal(want) {
		t.Errorf("expected remind_at %s, got %v", want, resp.RemindAt)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request id header")
	}
}

func TestCreateTaskAcceptsAliases(t *testing.T) {
	e, _ := setupServer(t)

	rec, resp := doJSON(t, e, http.MethodPost, "/api/tasks",
		`{"user_id":7,"task_text":"Standup","date":"2025-03-03","time":"10:00","reminder":15,"is_reminder":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if resp.Task.Text != "Standup" || resp.Task.LeadMinutes != 15 {
		t.Errorf("aliases not applied: %+v", resp.Task)
	}
	want := time.Date(2025, 3, 3, 9, 45, 0, 0, time.UTC)
	if resp.RemindAt == nil || !resp.RemindAt.Equal(want) {
		t.Errorf("expected remind_at %s, got %v", want, resp.RemindAt)
	}
}

func TestCreateLegacyTaskRemindsFromNow(t *testing.T) {
	e, _ := setupServer(t)
	before := time.Now()

	rec, resp := doJSON(t, e, http.MethodPost, "/api/new_task",
		`{"user_id":42,"task_text":"Tea","remind_in_minutes":10,"emoji":"🍵"}`)
	if rec.Code != http.StatusOK || resp.Message == "" {
		t.Fatalf("expected 200 with message, got %d %s", rec.Code, rec.Body.String())
	}
	if resp.RemindAt == nil {
		t.Fatal("legacy task must be scheduled")
	}
	if d := resp.RemindAt.Sub(before); d < 9*time.Minute || d > 11*time.Minute {
		t.Errorf("expected remind_at about ten minutes ahead, got %s", d)
	}
	if !resp.Task.IsReminder || resp.Task.LeadMinutes != 0 {
		t.Errorf("legacy task should be a plain reminder: %+v", resp.Task)
	}
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	e, db := setupServer(t)

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"user_id":`, "invalid JSON payload"},
		{"missing user", `{"text":"x"}`, "user_id is required"},
		{"missing text", `{"user_id":1}`, "text is required"},
		{"blank text", `{"user_id":1,"text":"   "}`, "text is required"},
		{"negative lead", `{"user_id":1,"text":"x","lead_minutes":-1}`, "lead_minutes must be at least 0"},
		{"bad type", `{"user_id":1,"text":"x","task_type":"event"}`, "task_type must be one of: task note reminder"},
	}

	for _, tc := range cases {
		rec, resp := doJSON(t, e, http.MethodPost, "/api/tasks", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
		if resp.Status != "error" || resp.Message != tc.message {
			t.Errorf("%s: unexpected body %s", tc.name, rec.Body.String())
		}
	}

	var count int64
	db.Model(&model.Task{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected requests must not persist anything, found %d rows", count)
	}
}

func TestCreateTaskWithMalformedTimeIsStoredUnscheduled(t *testing.T) {
	e, _ := setupServer(t)

	rec, resp := doJSON(t, e, http.MethodPost, "/api/tasks",
		`{"user_id":1,"text":"x","date":"2025-03-01","time":"25:99","is_reminder":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if resp.RemindAt != nil || resp.Task.Time != nil {
		t.Errorf("expected unscheduled task, got %+v", resp.Task)
	}
}

func TestListTasks(t *testing.T) {
	e, _ := setupServer(t)

	for _, body := range []string{
		`{"user_id":1,"text":"undated"}`,
		`{"user_id":1,"text":"later","date":"2025-03-02","time":"08:00"}`,
		`{"user_id":1,"text":"sooner","date":"2025-03-01","time":"18:00"}`,
		`{"user_id":2,"text":"someone else"}`,
	} {
		if rec, _ := doJSON(t, e, http.MethodPost, "/api/tasks", body); rec.Code != http.StatusOK {
			t.Fatalf("seed %s: %d", body, rec.Code)
		}
	}

	rec, resp := doJSON(t, e, http.MethodGet, "/api/tasks?user_id=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Count != 3 {
		t.Fatalf("expected 3 tasks, got %d", resp.Count)
	}
	got := []string{resp.Tasks[0].Text, resp.Tasks[1].Text, resp.Tasks[2].Text}
	if got[0] != "sooner" || got[1] != "later" || got[2] != "undated" {
		t.Errorf("unexpected order %v", got)
	}

	if rec, _ := doJSON(t, e, http.MethodGet, "/api/tasks", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id should be 400, got %d", rec.Code)
	}
}

func TestUpdateTask(t *testing.T) {
	e, _ := setupServer(t)

	_, created := doJSON(t, e, http.MethodPost, "/api/tasks", `{"user_id":1,"text":"report"}`)
	path := "/api/tasks/" + jsonID(created.ID)

	rec, _ := doJSON(t, e, http.MethodPatch, path, `{"user_id":2,"completed":true}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign task should be 404, got %d", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPatch, path, `{"user_id":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty update should be 400, got %d", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPatch, path, `{"user_id":1,"status":"paused"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status should be 400, got %d", rec.Code)
	}

	rec, resp := doJSON(t, e, http.MethodPatch, path, `{"user_id":1,"status":"in_progress"}`)
	if rec.Code != http.StatusOK || resp.Task.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress, got %d %s", rec.Code, rec.Body.String())
	}

	rec, resp = doJSON(t, e, http.MethodPost, "/api/update_task",
		`{"user_id":1,"task_id":`+jsonID(created.ID)+`,"completed":true}`)
	if rec.Code != http.StatusOK || !resp.Task.Completed || resp.Task.CompletedAt == nil {
		t.Fatalf("legacy update should complete the task, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, e, http.MethodPatch, "/api/tasks/999", `{"user_id":1,"deleted":true}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing task should be 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	e, db := setupServer(t)

	rec, resp := doJSON(t, e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("expected healthy, got %d %s", rec.Code, rec.Body.String())
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.Close()

	rec, resp = doJSON(t, e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable || resp.Status != "error" {
		t.Errorf("expected 503 after the store went away, got %d %s", rec.Code, rec.Body.String())
	}
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
