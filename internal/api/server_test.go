package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/nubank-ynab-sync/internal/api"
	"github.com/eshaffer321/nubank-ynab-sync/internal/api/dto"
	"github.com/eshaffer321/nubank-ynab-sync/internal/application/service"
	appsync "github.com/eshaffer321/nubank-ynab-sync/internal/application/sync"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	server := api.NewServer(api.DefaultConfig(), repo, nil, testLogger()) // nil syncService for read-only tests
	return server, repo
}

type instantRunner struct{}

func (instantRunner) Run(_ context.Context, opts appsync.Options) (*appsync.Result, error) {
	return &appsync.Result{DryRun: opts.DryRun, SinceDate: "2024-03-03", TodayDate: "2024-03-10"}, nil
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_RunsEndpoints(t *testing.T) {
	t.Run("GET /api/runs returns runs", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, err := repo.StartSyncRun(storage.RunParams{Source: "nubank", SinceDate: "2024-03-03"})
		require.NoError(t, err)
		require.NoError(t, repo.CompleteSyncRun(runID, storage.RunCounts{Checking: 1, Credit: 2, Imported: 3}))

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.SyncRunListResponse
		err = json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, 1, response.Count)
		assert.Equal(t, 3, response.Runs[0].ImportedCount)
	})

	t.Run("GET /api/runs/:id returns single run", func(t *testing.T) {
		server, repo := newTestServer(t)
		runID, err := repo.StartSyncRun(storage.RunParams{Source: "nubank"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/1", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.SyncRunResponse
		err = json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, runID, response.ID)
		assert.Equal(t, storage.StatusRunning, response.Status)
	})

	t.Run("GET /api/runs/:id returns 404 for missing run", func(t *testing.T) {
		server, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/42", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_SyncEndpoints(t *testing.T) {
	t.Run("not mounted without a sync service", func(t *testing.T) {
		server, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("start then poll", func(t *testing.T) {
		cfg := config.Default()
		cfg.Observability.Logging.Level = "error"
		svc := service.NewSyncService(cfg, func(*slog.Logger) (service.Runner, error) {
			return instantRunner{}, nil
		}, testLogger())
		server := api.NewServer(api.DefaultConfig(), storage.NewMockRepository(), svc, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"dry_run":true}`))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var started dto.StartSyncResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))

		var job dto.SyncJobResponse
		require.Eventually(t, func() bool {
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/"+started.JobID, nil))
			if rec.Code != http.StatusOK {
				return false
			}
			job = dto.SyncJobResponse{}
			return json.NewDecoder(rec.Body).Decode(&job) == nil && job.Status == "completed"
		}, 2*time.Second, 5*time.Millisecond)

		require.NotNil(t, job.Result)
		assert.Equal(t, "2024-03-03", job.Result.SinceDate)
		assert.Contains(t, job.Result.Summary, "Dry run: 0 transactions would be imported")
	})
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/sync", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
