package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/search-provisioner/internal/backup"
	"github.com/utafrali/search-provisioner/internal/provision"
	"github.com/utafrali/search-provisioner/internal/seed"
	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
	"github.com/utafrali/search-provisioner/pkg/health"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeProvisioner struct {
	report   *provision.Report
	err      error
	lastPlan *provision.Plan
}

func (f *fakeProvisioner) Run(_ context.Context, plan *provision.Plan) (*provision.Report, error) {
	f.lastPlan = plan
	return f.report, f.err
}

type fakeSeeder struct {
	mu       sync.Mutex
	report   *seed.Report
	err      error
	ran      chan struct{}
	lastUID  string
	runCount int
}

func newFakeSeeder() *fakeSeeder {
	return &fakeSeeder{
		report: &seed.Report{Documents: 10, Batches: 1},
		ran:    make(chan struct{}, 1),
	}
}

func (f *fakeSeeder) Run(_ context.Context, indexUID string) (*seed.Report, error) {
	f.mu.Lock()
	f.lastUID = indexUID
	f.runCount++
	f.mu.Unlock()
	f.ran <- struct{}{}
	return f.report, f.err
}

type fakeBackup struct {
	report *backup.Report
	err    error
}

func (f *fakeBackup) CreateDump(_ context.Context) (*backup.Report, error) {
	return f.report, f.err
}

func newTestRouter(p *fakeProvisioner, s *fakeSeeder, b *fakeBackup) http.Handler {
	logger := newTestLogger()
	admin := NewAdminHandler(p, s, b, "products", logger)
	return NewRouter(admin, health.NewHandler(), logger)
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

// --- Tests ---

func TestProvision_DefaultPlan(t *testing.T) {
	p := &fakeProvisioner{report: &provision.Report{
		IndexCreated:    true,
		SettingsApplied: true,
		KeysCreated:     []string{"storefront-search"},
		Duration:        3 * time.Second,
	}}
	router := newTestRouter(p, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/provision", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "products", data["index_uid"])
	assert.Equal(t, true, data["index_created"])

	require.NotNil(t, p.lastPlan)
	assert.Equal(t, "products", p.lastPlan.IndexUID)
}

func TestProvision_OverridesIndexIdentity(t *testing.T) {
	p := &fakeProvisioner{report: &provision.Report{}}
	router := newTestRouter(p, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/provision",
		`{"index_uid":"products_staging","primary_key":"sku"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p.lastPlan)
	assert.Equal(t, "products_staging", p.lastPlan.IndexUID)
	assert.Equal(t, "sku", p.lastPlan.PrimaryKey)
}

func TestProvision_LeaseHeldIsConflict(t *testing.T) {
	p := &fakeProvisioner{err: apperrors.LeaseHeld("other-run")}
	router := newTestRouter(p, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/provision", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "LEASE_HELD")
}

func TestProvision_EngineUnavailable(t *testing.T) {
	p := &fakeProvisioner{err: apperrors.EngineUnavailable("engine not available after 60s")}
	router := newTestRouter(p, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/provision", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProvision_MalformedBody(t *testing.T) {
	p := &fakeProvisioner{report: &provision.Report{}}
	router := newTestRouter(p, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/provision", `{"index_uid":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeed_RunsInBackground(t *testing.T) {
	s := newFakeSeeder()
	router := newTestRouter(&fakeProvisioner{}, s, &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/seed", "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "seed started", data["status"])
	assert.NotEmpty(t, data["run_id"])

	select {
	case <-s.ran:
	case <-time.After(time.Second):
		t.Fatal("seed run did not start")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, "products", s.lastUID)
}

func TestSeed_CustomIndex(t *testing.T) {
	s := newFakeSeeder()
	router := newTestRouter(&fakeProvisioner{}, s, &fakeBackup{})

	rec := doRequest(t, router, http.MethodPost, "/api/v1/seed", `{"index_uid":"products_staging"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-s.ran:
	case <-time.After(time.Second):
		t.Fatal("seed run did not start")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, "products_staging", s.lastUID)
}

func TestBackup_Success(t *testing.T) {
	b := &fakeBackup{report: &backup.Report{TaskUID: 42, Duration: 2 * time.Second}}
	router := newTestRouter(&fakeProvisioner{}, newFakeSeeder(), b)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/backup", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, float64(42), data["task_uid"])
}

func TestBackup_Failure(t *testing.T) {
	b := &fakeBackup{err: apperrors.Internal(context.DeadlineExceeded)}
	router := newTestRouter(&fakeProvisioner{}, newFakeSeeder(), b)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/backup", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(&fakeProvisioner{}, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeProvisioner{}, newFakeSeeder(), &fakeBackup{})

	rec := doRequest(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
