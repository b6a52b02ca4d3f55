package assetstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) List(context.Context) ([]string, error) { return nil, errors.New("disk gone") }
func (failingStore) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk gone")
}
func (failingStore) Write(context.Context, string, []byte) error { return errors.New("disk gone") }

func newTestServer(t *testing.T, store Store) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(store).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_Routes(t *testing.T) {
	// --- Arrange ---
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), "alice.vrm", []byte("glb")))
	ts := newTestServer(t, store)

	t.Run("list", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/vrm")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"models":["alice.vrm"]}`, string(body))
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("read", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/vrm/alice.vrm")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "glb", string(body))
	})

	t.Run("read missing", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/vrm/ghost.vrm")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Empty(t, body)
	})

	t.Run("write", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/vrm/bob.vrm", "application/octet-stream", strings.NewReader("new"))
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data, err := store.Read(context.Background(), "bob.vrm")
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/vrm/bob.vrm", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Methods"))
	})
}

func TestServer_StoreFailures(t *testing.T) {
	ts := newTestServer(t, failingStore{})

	resp, err := http.Get(ts.URL + "/vrm")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/vrm/a.vrm", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestClient_RoundTrip(t *testing.T) {
	// --- Arrange ---
	sqlStore, err := OpenSQLiteStore(t.TempDir() + "/models.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })
	ts := newTestServer(t, sqlStore)
	client := NewClient(ts.URL)
	ctx := context.Background()

	// --- Act ---
	require.NoError(t, client.Write(ctx, "alice.vrm", []byte("glb")))
	names, listErr := client.List(ctx)
	data, readErr := client.Read(ctx, "alice.vrm")
	_, missingErr := client.Read(ctx, "ghost.vrm")

	// --- Assert ---
	require.NoError(t, listErr)
	assert.Equal(t, []string{"alice.vrm"}, names)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("glb"), data)
	assert.ErrorIs(t, missingErr, ErrNotFound)
}

func TestClient_ListNotOKIsEmpty(t *testing.T) {
	ts := newTestServer(t, failingStore{})
	client := NewClient(ts.URL)

	names, err := client.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestNewClient_AddsScheme(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8108", NewClient("").baseURL)
	assert.Equal(t, "http://localhost:9000", NewClient("localhost:9000/").baseURL)
	assert.Equal(t, "https://models.example", NewClient("https://models.example").baseURL)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	// --- Arrange ---
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	srv := NewServer(store, WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// --- Act ---
	go func() { done <- srv.ListenAndServe(ctx) }()
	cancel()

	// --- Assert ---
	assert.NoError(t, <-done)
}
