// internal/engine/client_test.go
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pr-review-service/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	return NewClient(server.URL, slog.New(slog.NewTextHandler(&logs, nil))), &logs
}

func TestClient_ReviewPullRequest(t *testing.T) {
	t.Run("posts the pull request coordinates", func(t *testing.T) {
		var got map[string]any
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/reviews", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		})

		err := client.ReviewPullRequest(context.Background(), "alice", "widgets", 7)

		require.NoError(t, err)
		assert.Equal(t, "alice", got["owner"])
		assert.Equal(t, "widgets", got["repo"])
		assert.Equal(t, float64(7), got["pr_number"])
	})

	t.Run("engine rejection is returned and logged", func(t *testing.T) {
		client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "unknown repository")
		})

		err := client.ReviewPullRequest(context.Background(), "alice", "widgets", 7)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
		assert.Contains(t, err.Error(), "unknown repository")
		assert.Contains(t, logs.String(), "Engine rejected request")
	})
}

func TestClient_IndexCodebase(t *testing.T) {
	var got map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/index", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := client.IndexCodebase(context.Background(), "alice/widgets", []model.RepoFile{
		{Path: "main.go", Content: "package main"},
	})

	require.NoError(t, err)
	assert.Equal(t, "alice/widgets", got["repo"])
	files, ok := got["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 1)
}
