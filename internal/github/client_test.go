package github

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/perfbudget/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-token", "acme/shop", srv.URL, nil)
	require.NoError(t, err)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "acme/shop", "", nil)
	assert.Error(t, err)

	_, err = NewClient("t", "shop", "", nil)
	assert.Error(t, err)

	c, err := NewClient("t", "acme/shop", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com", c.baseURL)
}

func TestUpsertComment_Creates(t *testing.T) {
	var created string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/acme/shop/issues/7/comments":
			_, _ = w.Write([]byte(`[{"id": 1, "body": "looks good"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/repos/acme/shop/issues/7/comments":
			var req models.GitHubCommentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			created = req.Body
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 99, "body": "x"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	comment, err := c.UpsertComment(context.Background(), 7, "## Report")
	require.NoError(t, err)
	assert.Equal(t, int64(99), comment.ID)
	assert.True(t, strings.HasPrefix(created, models.CommentMarker))
}

func TestUpsertComment_UpdatesExisting(t *testing.T) {
	var patched atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`[{"id": 5, "body": "other"}, {"id": 6, "body": "` + models.CommentMarker + `\nold"}]`))
		case r.Method == http.MethodPatch && r.URL.Path == "/repos/acme/shop/issues/comments/6":
			patched.Store(true)
			_, _ = w.Write([]byte(`{"id": 6}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	comment, err := c.UpsertComment(context.Background(), 7, models.CommentMarker+"\nnew")
	require.NoError(t, err)
	assert.Equal(t, int64(6), comment.ID)
	assert.True(t, patched.Load())
}

func TestSetStatus(t *testing.T) {
	var got models.GitHubStatusRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/shop/statuses/abc123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.SetStatus(context.Background(), "abc123", StateFailure, strings.Repeat("x", 200), ""))
	assert.Equal(t, StatusContext, got.Context)
	assert.Equal(t, StateFailure, got.State)
	assert.Len(t, got.Description, 140)

	assert.Error(t, c.SetStatus(context.Background(), "", StateSuccess, "ok", ""))
}

func TestRetry_ServerErrorsThenSuccess(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.SetStatus(context.Background(), "abc", StateSuccess, "ok", ""))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := c.SetStatus(context.Background(), "abc", StateSuccess, "ok", "")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestRetry_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	})

	err := c.SetStatus(context.Background(), "abc", "bogus", "ok", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Validation Failed")
	assert.Equal(t, int32(1), calls.Load())
}

func TestReadEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	payload := `{
  "action": "synchronize",
  "number": 12,
  "pull_request": {"number": 12, "head": {"ref": "feature/x", "sha": "abc"}, "base": {"ref": "main", "sha": "def"}},
  "repository": {"full_name": "acme/shop"}
}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	event, err := ReadEvent(path)
	require.NoError(t, err)
	assert.Equal(t, 12, event.GetNumber())
	assert.Equal(t, "feature/x", event.GetHeadBranch())
	assert.Equal(t, "main", event.GetBaseBranch())
	assert.Equal(t, "abc", event.GetHeadSHA())
	assert.Equal(t, "acme/shop", event.GetRepositoryName())

	_, err = ReadEvent("")
	assert.Error(t, err)
	_, err = ReadEvent(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
