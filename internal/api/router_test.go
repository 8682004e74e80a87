package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/budget-sync/internal/api"
	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/gcsuploader"
	"github.com/dvloznov/budget-sync/internal/jobs"
	"github.com/dvloznov/budget-sync/internal/jobs/inmemory"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

type testServer struct {
	handler   http.Handler
	jobs      *inmemory.Store
	queue     *inmemory.Queue
	versions  *versioning.MemoryStore
	artifacts *gcsuploader.LocalArtifactStore
}

// newTestServer wires the router to a queue that is never started, so
// published jobs stay pending.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(8, 1, store)
	t.Cleanup(func() { _ = queue.Close() })

	versions := versioning.NewMemoryStore()
	artifacts, err := gcsuploader.NewLocalArtifactStore(t.TempDir())
	require.NoError(t, err)
	return &testServer{
		handler: api.NewRouter(api.Deps{
			Publisher: queue,
			Jobs:      store,
			Versions:  versions,
			Artifacts: artifacts,
			Log:       zerolog.Nop(),
		}),
		jobs:      store,
		queue:     queue,
		versions:  versions,
		artifacts: artifacts,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProcessBudget(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"accepted", `{"spreadsheet_id":"S1","sheet_name":"Estimate"}`, http.StatusAccepted},
		{"missing sheet", `{"spreadsheet_id":"S1"}`, http.StatusBadRequest},
		{"blank id", `{"spreadsheet_id":"  ","sheet_name":"Estimate"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec, body := s.do(t, http.MethodPost, "/api/budgets/process", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusAccepted {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, "pending", body["status"])

			job, err := s.jobs.GetJob(context.Background(), body["job_id"].(string))
			require.NoError(t, err)
			assert.Equal(t, "S1", job.SpreadsheetID)
			assert.Equal(t, "Estimate", job.SheetName)
		})
	}
}

func TestJobsEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.jobs.SaveJob(ctx, &jobs.ProcessBudgetJob{JobID: "j1", SpreadsheetID: "S1", Status: jobs.JobStatusCompleted, CreatedAt: base}))
	require.NoError(t, s.jobs.SaveJob(ctx, &jobs.ProcessBudgetJob{JobID: "j2", SpreadsheetID: "S2", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)}))

	rec, body := s.do(t, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])

	rec, body = s.do(t, http.MethodGet, "/api/jobs?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = s.do(t, http.MethodGet, "/api/jobs/j1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])

	rec, _ = s.do(t, http.MethodGet, "/api/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobDocument(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	uri, err := gcsuploader.WriteDocument(ctx, s.artifacts, "budgets", &budget.ProcessedBudget{
		BudgetID:         "b1",
		ProjectID:        "ACME",
		ValidationStatus: budget.StatusValid,
	})
	require.NoError(t, err)
	require.NoError(t, s.jobs.SaveJob(ctx, &jobs.ProcessBudgetJob{JobID: "j1", Status: jobs.JobStatusCompleted, ArtifactURI: uri}))
	require.NoError(t, s.jobs.SaveJob(ctx, &jobs.ProcessBudgetJob{JobID: "j2", Status: jobs.JobStatusPending}))
	require.NoError(t, s.jobs.SaveJob(ctx, &jobs.ProcessBudgetJob{JobID: "j3", Status: jobs.JobStatusCompleted, ArtifactURI: "budgets/ACME/gone.json"}))

	rec, body := s.do(t, http.MethodGet, "/api/jobs/j1/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", body["budget_id"])
	assert.Equal(t, "ACME", body["project_id"])

	rec, _ = s.do(t, http.MethodGet, "/api/jobs/j2/document", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/jobs/j3/document", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/jobs/nope/document", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetVersion(t *testing.T) {
	s := newTestServer(t)
	id := budget.Identity{SpreadsheetID: "S1", SheetName: "Estimate v2"}
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	_, err := s.versions.Update(context.Background(), id, func(cur *budget.BudgetVersion, siblings []budget.BudgetVersion) (budget.BudgetVersion, error) {
		v, _ := versioning.Next(id, "h1", now, cur, siblings)
		return v, nil
	})
	require.NoError(t, err)

	rec, body := s.do(t, http.MethodGet, "/api/versions/S1/Estimate%20v2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.0.0", body["label"])

	rec, _ = s.do(t, http.MethodGet, "/api/versions/S1/Other", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.versions.PutRaw(budget.Identity{SpreadsheetID: "S1", SheetName: "Broken"}, []byte("{"))
	rec, _ = s.do(t, http.MethodGet, "/api/versions/S1/Broken", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_Fallbacks(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/jobs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = s.do(t, http.MethodOptions, "/api/jobs", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
