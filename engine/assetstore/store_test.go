package assetstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "alice.vrm", want: "alice.vrm"},
		{name: "drops directories", in: "../../etc/alice.vrm", want: "alice.vrm"},
		{name: "trims spaces", in: "  bob.vrm ", want: "bob.vrm"},
		{name: "empty", in: "", wantErr: true},
		{name: "parent only", in: "..", wantErr: true},
		{name: "root", in: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// storeContract runs the behavior every Store implementation shares.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("missing read", func(t *testing.T) {
		_, err := store.Read(ctx, "ghost.vrm")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("write read and list", func(t *testing.T) {
		// --- Arrange ---
		require.NoError(t, store.Write(ctx, "zed.vrm", []byte("z")))
		require.NoError(t, store.Write(ctx, "alice.vrm", []byte("a1")))
		require.NoError(t, store.Write(ctx, "notes.txt", []byte("skip")))

		// --- Act ---
		require.NoError(t, store.Write(ctx, "sub/alice.vrm", []byte("a2")))
		names, err := store.List(ctx)
		require.NoError(t, err)
		data, readErr := store.Read(ctx, "alice.vrm")

		// --- Assert ---
		if diff := cmp.Diff([]string{"alice.vrm", "zed.vrm"}, names); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
		require.NoError(t, readErr)
		assert.Equal(t, []byte("a2"), data)
	})

	t.Run("invalid name", func(t *testing.T) {
		assert.ErrorIs(t, store.Write(ctx, "..", []byte("x")), ErrInvalidName)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.List(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFileStore_Contract(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "models"))
	require.NoError(t, err)
	storeContract(t, store)
}

func TestFileStore_RecreatesMissingDirectory(t *testing.T) {
	// --- Arrange ---
	dir := filepath.Join(t.TempDir(), "models")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	// --- Act ---
	names, err := store.List(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.DirExists(t, dir)
}

func TestFileStore_WritesBaseNameOnly(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, store.Write(context.Background(), "../escape.vrm", []byte("x")))

	// --- Assert ---
	assert.FileExists(t, filepath.Join(dir, "escape.vrm"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.vrm"))
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	storeContract(t, store)
}

func TestSQLiteStore_ReopenKeepsModels(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "models.db")
	first, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Write(context.Background(), "alice.vrm", []byte("a")))
	require.NoError(t, first.Close())

	// --- Act ---
	second, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	data, err := second.Read(context.Background(), "alice.vrm")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}

func TestOpenSQLiteStore_RequiresPath(t *testing.T) {
	_, err := OpenSQLiteStore("  ")
	assert.Error(t, err)
}

func TestUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	got := upMigration(content)
	assert.Contains(t, got, "CREATE TABLE a")
	assert.NotContains(t, got, "DROP TABLE")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	fileStore, closeFile, err := Open(Options{Kind: KindFile, Dir: filepath.Join(dir, "models")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)
	assert.NoError(t, closeFile())

	sqlStore, closeSQL, err := Open(Options{Kind: KindSQLite, Path: filepath.Join(dir, "models.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqlStore)
	assert.NoError(t, closeSQL())

	client, _, err := Open(Options{Kind: KindHTTP, Addr: "127.0.0.1:9000"})
	require.NoError(t, err)
	assert.IsType(t, &Client{}, client)

	_, closeNone, err := Open(Options{Kind: "s3"})
	assert.Error(t, err)
	assert.NotNil(t, closeNone)
}
