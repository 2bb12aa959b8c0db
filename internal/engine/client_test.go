package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/search-provisioner/internal/task"
	apperrors "github.com/utafrali/search-provisioner/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, MasterKey: "master-key"}, newTestLogger())
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer master-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "available"})
	}))

	status, err := c.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "available", status)
}

func TestClient_Ping_Unavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
	}))

	err := c.Ping(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrEngineUnavail)
}

func TestClient_GetIndex_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "Index `products` not found.",
			"code":    "index_not_found",
			"type":    "invalid_request",
		})
	}))

	idx, err := c.GetIndex(context.Background(), "products")

	assert.Nil(t, idx)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClient_CreateIndex_ReturnsTaskHandle(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/indexes", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "products", body["uid"])
		assert.Equal(t, "id", body["primaryKey"])

		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(TaskRef{TaskUID: 17, IndexUID: "products", Status: "enqueued", Type: "indexCreation"})
	}))

	ref, err := c.CreateIndex(context.Background(), "products", "id")

	require.NoError(t, err)
	assert.Equal(t, task.Handle("17"), ref.Handle())
	assert.Equal(t, "enqueued", ref.Status)
}

func TestClient_UpdateSettings_PartialBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/indexes/products/settings", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		// Unset fields must be omitted so the update stays partial.
		assert.NotContains(t, string(body), "rankingRules")
		assert.Contains(t, string(body), "searchableAttributes")

		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(TaskRef{TaskUID: 18, Status: "enqueued", Type: "settingsUpdate"})
	}))

	ref, err := c.UpdateSettings(context.Background(), "products", &Settings{
		SearchableAttributes: []string{"name", "description"},
	})

	require.NoError(t, err)
	assert.EqualValues(t, 18, ref.TaskUID)
}

func TestClient_CreateKey_Synchronous(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/keys", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Key{
			UID:     "key-uid-1",
			Key:     "generated-secret",
			Name:    "catalog-search",
			Actions: []string{"search"},
			Indexes: []string{"products"},
		})
	}))

	created, err := c.CreateKey(context.Background(), &Key{
		Name:    "catalog-search",
		Actions: []string{"search"},
		Indexes: []string{"products"},
	})

	require.NoError(t, err)
	assert.Equal(t, "generated-secret", created.Key)
	assert.Equal(t, "key-uid-1", created.UID)
}

func TestClient_GetTask_FailedTask(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Task{
			UID:    42,
			Status: "failed",
			Type:   "settingsUpdate",
			Error: &TaskError{
				Message: "Unknown field `frobnicate`",
				Code:    "invalid_settings",
				Type:    "invalid_request",
			},
		})
	}))

	got, raw, err := c.GetTask(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.NotEmpty(t, raw)
	require.NotNil(t, got.Error)
	assert.Equal(t, "invalid_settings", got.Error.Code)
}

func TestClient_TaskFetcher_MapsPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Task{
			UID:    7,
			Status: "failed",
			Error:  &TaskError{Message: "boom", Code: "internal", Type: "internal"},
		})
	}))

	payload, err := c.TaskFetcher()(context.Background(), "7")

	require.NoError(t, err)
	assert.Equal(t, "failed", payload.Status)
	require.NotNil(t, payload.Cause)
	assert.Equal(t, "boom", payload.Cause.Message)
}

func TestClient_TaskFetcher_MissingTaskIsFetchError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "Task `7` not found.",
			"code":    "task_not_found",
			"type":    "invalid_request",
		})
	}))

	_, err := c.TaskFetcher()(context.Background(), "7")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClient_DecodeError_UnstructuredBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := c.CreateIndex(context.Background(), "products", "id")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}
