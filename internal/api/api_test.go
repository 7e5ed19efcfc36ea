package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/repo"
)

// --- fakes ---

type staticSchedules []domain.Schedule

func (s staticSchedules) Schedules() []domain.Schedule { return s }

type memDeployments struct {
	items  []domain.Deployment
	filter repo.DeploymentFilter
	err    error
}

func (m *memDeployments) List(_ context.Context, filter repo.DeploymentFilter) ([]domain.Deployment, error) {
	m.filter = filter
	return m.items, m.err
}

func (m *memDeployments) GetByID(_ context.Context, id uuid.UUID) (*domain.Deployment, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(cfg Config) *http.ServeMux {
	cfg.Logger = testLogger()
	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeList[T any](t *testing.T, rec *httptest.ResponseRecorder) ([]T, int) {
	t.Helper()
	var resp struct {
		Data  []T `json:"data"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, rec.Body.String())
	}
	return resp.Data, resp.Total
}

func succeeded(task string) domain.Deployment {
	d := domain.NewDeployment(task, []string{"web1"})
	d.MarkRunning()
	d.MarkSucceeded()
	return *d
}

// --- tests ---

func TestHealth(t *testing.T) {
	rec := do(t, newServer(Config{}), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestListSchedules(t *testing.T) {
	next := time.Date(2024, 1, 16, 3, 0, 0, 0, time.UTC)
	mux := newServer(Config{Schedules: staticSchedules{
		{Name: "nightly", Task: "deploy", CronExpr: "0 3 * * *", NextDueAt: &next},
		{Name: "weekly", Task: "cleanup", CronExpr: "0 4 * * 0", Timezone: "Europe/Berlin"},
	}})

	rec := do(t, mux, "/api/v1/schedules")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items, total := decodeList[ScheduleResponse](t, rec)
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, len = %d, want 2", total, len(items))
	}
	if items[0].Timezone != "UTC" || items[0].NextDueAt == nil || !items[0].NextDueAt.Equal(next) {
		t.Errorf("items[0] = %+v", items[0])
	}

	rec = do(t, mux, "/api/v1/schedules?task=cleanup")
	items, _ = decodeList[ScheduleResponse](t, rec)
	if len(items) != 1 || items[0].Name != "weekly" {
		t.Errorf("filtered = %+v", items)
	}
}

func TestListSchedules_NoScheduler(t *testing.T) {
	rec := do(t, newServer(Config{}), "/api/v1/schedules")
	items, total := decodeList[ScheduleResponse](t, rec)
	if rec.Code != http.StatusOK || total != 0 || len(items) != 0 {
		t.Errorf("GET /api/v1/schedules = %d %s", rec.Code, rec.Body.String())
	}
}

func TestListDeployments(t *testing.T) {
	store := &memDeployments{items: []domain.Deployment{succeeded("deploy"), succeeded("cleanup")}}
	mux := newServer(Config{Deployments: store})

	rec := do(t, mux, "/api/v1/deployments?task=deploy&status=succeeded&limit=5&offset=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	want := repo.DeploymentFilter{Task: "deploy", Status: domain.DeploymentStatusSucceeded, Limit: 5, Offset: 10}
	if store.filter != want {
		t.Errorf("filter = %+v, want %+v", store.filter, want)
	}

	items, total := decodeList[DeploymentResponse](t, rec)
	if total != 2 || items[0].Status != "SUCCEEDED" {
		t.Errorf("items = %+v", items)
	}
}

func TestListDeployments_DefaultLimit(t *testing.T) {
	store := &memDeployments{}
	do(t, newServer(Config{Deployments: store}), "/api/v1/deployments")

	if store.filter.Limit != repo.DefaultListLimit {
		t.Errorf("Limit = %d, want %d", store.filter.Limit, repo.DefaultListLimit)
	}
}

func TestListDeployments_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		target string
		want   int
	}{
		{"history disabled", Config{}, "/api/v1/deployments", http.StatusServiceUnavailable},
		{"bad status", Config{Deployments: &memDeployments{}}, "/api/v1/deployments?status=done", http.StatusBadRequest},
		{"bad limit", Config{Deployments: &memDeployments{}}, "/api/v1/deployments?limit=-1", http.StatusBadRequest},
		{"bad offset", Config{Deployments: &memDeployments{}}, "/api/v1/deployments?offset=x", http.StatusBadRequest},
		{"store error", Config{Deployments: &memDeployments{err: errors.New("conn refused")}}, "/api/v1/deployments", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newServer(tt.cfg), tt.target)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGetDeployment(t *testing.T) {
	d := succeeded("deploy")
	d.Release = "20240115103000"
	mux := newServer(Config{Deployments: &memDeployments{items: []domain.Deployment{d}}})

	rec := do(t, mux, "/api/v1/deployments/"+d.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data DeploymentResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Data.ID != d.ID || resp.Data.Release != "20240115103000" {
		t.Errorf("data = %+v", resp.Data)
	}

	if rec := do(t, mux, "/api/v1/deployments/"+uuid.NewString()); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
	if rec := do(t, mux, "/api/v1/deployments/not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestLogging_CapturesStatus(t *testing.T) {
	var status int
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFound(w, "nope")
	})
	capture := Middleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			status = rw.status
		})
	})

	rec := httptest.NewRecorder()
	Chain(Logging(logger), capture)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if status != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("captured status = %d, recorder = %d, want 404", status, rec.Code)
	}
}
