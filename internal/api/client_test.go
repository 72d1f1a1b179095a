package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blasternet/combatsync/pkg/core"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/", "secret123")
	require.NotNil(t, c)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret123", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	c := New(server.URL, "")
	assert.NoError(t, c.Healthcheck(context.Background()))

	status.Store(http.StatusInternalServerError)
	assert.Error(t, c.Healthcheck(context.Background()))
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	assert.Error(t, c.Healthcheck(context.Background()))
}

func TestUpload_Success(t *testing.T) {
	got := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, uploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "level", "matchKey", "matchDuration", "tag"} {
			got[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer file.Close()
			content, _ = io.ReadAll(file)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "arena_20260101_120000.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("test content"), 0644))

	c := New(server.URL, "mysecret")
	err := c.Upload(context.Background(), path, core.UploadMetadata{
		Level:         "arena",
		MatchKey:      "4f7c",
		MatchDuration: 140.5,
		Tag:           "FFA",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":        "mysecret",
		"filename":      "arena_20260101_120000.json.gz",
		"level":         "arena",
		"matchKey":      "4f7c",
		"matchDuration": "140.500000",
		"tag":           "FFA",
	}, got)
	assert.Equal(t, "test content", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	err := c.Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	c := New(server.URL, "wrong-secret")
	err := c.Upload(context.Background(), path, core.UploadMetadata{})
	assert.ErrorContains(t, err, "status 403")
	assert.True(t, IsUnauthorized(err))
}

func TestUpload_SendsBearerToken(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.Copy(io.Discard, r.Body)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	require.NoError(t, New(server.URL, "k3y").Upload(context.Background(), path, core.UploadMetadata{}))
	assert.Equal(t, "Bearer k3y", auth)
}

func TestStatusError_IncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collector draining", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "healthcheck returned status 503: collector draining", err.Error())
	assert.False(t, IsUnauthorized(err))
}
