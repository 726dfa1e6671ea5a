package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/mapdrive/internal/config"
	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exercise runs the same contract against every backend.
func exercise(t *testing.T, s Store) {
	t.Helper()

	var missing float64
	err := s.Get("camera.zoom", &missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 18.0, GetFloat(s, "camera.zoom", 18))

	require.NoError(t, s.Put("camera.zoom", 16.5))
	assert.Equal(t, 16.5, GetFloat(s, "camera.zoom", 18))

	// Overwrite.
	require.NoError(t, s.Put("camera.zoom", 15.0))
	assert.Equal(t, 15.0, GetFloat(s, "camera.zoom", 18))

	odo := core.Odometer{Driven: 1200.5, Walked: 40}
	require.NoError(t, s.Put(KeyOdometer, odo))
	var got core.Odometer
	require.NoError(t, s.Get(KeyOdometer, &got))
	assert.Equal(t, odo, got)

	require.NoError(t, s.Delete(KeyOdometer))
	assert.ErrorIs(t, s.Get(KeyOdometer, &got), ErrNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete("nope"))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exercise(t, m)
	assert.Equal(t, 1, m.Keys())
	require.NoError(t, m.Close())
}

func TestMemory_UnencodableValue(t *testing.T) {
	m := NewMemory()
	err := m.Put("bad", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding bad")
}

func TestSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewSQLite(SQLiteConfig{Path: path}, discardLogger())
	require.NoError(t, err)
	exercise(t, s)
	require.NoError(t, s.Put(KeySnapshot, core.Entity{ModelID: "car", Mode: core.ModeCar}))
	require.NoError(t, s.Close())

	// Values survive a reopen.
	s, err = NewSQLite(SQLiteConfig{Path: path}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var e core.Entity
	require.NoError(t, s.Get(KeySnapshot, &e))
	assert.Equal(t, "car", e.ModelID)
	assert.Equal(t, 15.0, GetFloat(s, "camera.zoom", 0))
}

func TestSQLite_MemoryIsPrivate(t *testing.T) {
	a, err := NewSQLite(SQLiteConfig{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := NewSQLite(SQLiteConfig{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, a.Put("k", 1.0))
	var v float64
	assert.ErrorIs(t, b.Get("k", &v), ErrNotFound)
}

func TestSQLite_DumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")

	s, err := NewSQLite(SQLiteConfig{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, discardLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put("camera.pitch", 45.0))

	require.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close())

	// The dump is a usable sqlite database.
	restored, err := NewSQLite(SQLiteConfig{Path: dump}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = restored.Close() })
	assert.Equal(t, 45.0, GetFloat(restored, "camera.pitch", 0))
}

func TestDumpToDisk_NoPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	assert.Error(t, DumpToDisk(db, ""))
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host: "db", Port: "5432", Username: "u", Password: "p", Database: "mapdrive",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=mapdrive sslmode=disable", dsn)
}

func TestNew(t *testing.T) {
	s, err := New(config.StorageConfig{Type: "memory"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(config.StorageConfig{Type: "sqlite"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = New(config.StorageConfig{Type: "redis"}, discardLogger())
	assert.EqualError(t, err, "unknown storage type: redis")
}
