package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendiary/diary/internal/metrics"
	"github.com/opendiary/diary/internal/models"
	"github.com/opendiary/diary/internal/storage"
	"github.com/opendiary/diary/pkg/utils"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	utils.InitLogger("error", "text", "stdout", "")

	store := storage.NewSQLiteStorage(&storage.StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "diary_api_test.db"),
		MaxConnections:   5,
	})
	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	srv, err := NewHTTPServer(&ServerConfig{
		Host:          "127.0.0.1",
		Port:          0,
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		EnableHealth:  true,
		EnableMetrics: false,
	}, store, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeEntry(t *testing.T, resp *http.Response) *models.Entry {
	t.Helper()
	defer resp.Body.Close()

	var entry models.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	return &entry
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestEntryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// Create
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/entries", createEntryRequest{
		Content: "Started learning Go today.",
		Pinned:  true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeEntry(t, resp)
	assert.Equal(t, int64(1), created.ID)
	assert.True(t, created.Pinned)

	entryURL := fmt.Sprintf("%s/api/v1/entries/%d", ts.URL, created.ID)

	// Read
	resp, err := http.Get(entryURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeEntry(t, resp)
	assert.Equal(t, created.Content, fetched.Content)

	// Update
	unpinned := false
	resp = doJSON(t, http.MethodPut, entryURL, updateEntryRequest{Pinned: &unpinned})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeEntry(t, resp)
	assert.False(t, updated.Pinned)
	assert.Equal(t, created.Content, updated.Content)
	assert.NotNil(t, updated.UpdatedAt)

	// Delete
	resp = doJSON(t, http.MethodDelete, entryURL, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Gone
	resp, err = http.Get(entryURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListEntries(t *testing.T) {
	ts := newTestServer(t)

	for i, content := range []string{"First entry", "Second entry", "Third pinned entry"} {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/entries", createEntryRequest{
			Content: content,
			Pinned:  i != 1,
		})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/v1/entries")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list listEntriesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Entries, 3)
	assert.Equal(t, int64(1), list.Page)
	assert.Equal(t, int64(10), list.PerPage)

	// Pinned filter
	resp, err = http.Get(ts.URL + "/api/v1/entries?pinned=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, int64(2), list.Total)

	// Substring filter
	resp, err = http.Get(ts.URL + "/api/v1/entries?substr=Second")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "Second entry", list.Entries[0].Content)
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	// Empty content
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/entries", createEntryRequest{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad sort parameter
	resp, err := http.Get(ts.URL + "/api/v1/entries?sort=sideways")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad pagination
	resp, err = http.Get(ts.URL + "/api/v1/entries?page=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Update with no fields
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/entries", createEntryRequest{Content: "x"})
	created := decodeEntry(t, resp)

	resp = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/v1/entries/%d", ts.URL, created.ID), updateEntryRequest{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	utils.InitLogger("error", "text", "stdout", "")

	store := storage.NewSQLiteStorage(&storage.StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "diary_lifecycle_test.db"),
		MaxConnections:   5,
	})
	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	srv, err := NewHTTPServer(&ServerConfig{
		Host:          "127.0.0.1",
		Port:          0,
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		EnableHealth:  true,
		EnableMetrics: true,
	}, store, metrics.NewManager())
	require.NoError(t, err)

	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())

	// Stop is idempotent
	assert.NoError(t, srv.Stop())
}
