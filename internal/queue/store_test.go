package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotseeker/slotseeker/internal/patient"
)

func writePatients(t *testing.T, path string, patients []patient.Patient) {
	t.Helper()
	data, err := json.Marshal(patients)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoadPendingFiltersBooked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	writePatients(t, path, []patient.Patient{
		{FirstName: "Ada", Success: true},
		{FirstName: "Ben"},
		{FirstName: "Cal"},
	})

	s := New(path)
	pending, err := s.LoadPending(context.Background())
	require.NoError(t, err)

	require.Len(t, pending, 2)
	assert.Equal(t, "Ben", pending[0].FirstName)
	assert.Equal(t, "Cal", pending[1].FirstName)
}

func TestLoadRetriesWhileWriterIsMidWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"first_name": "Ada"`), 0o644))

	go func() {
		time.Sleep(50 * time.Millisecond)
		data, _ := json.Marshal([]patient.Patient{{FirstName: "Ada"}})
		_ = os.WriteFile(path, data, 0o644)
	}()

	s := New(path, WithReadRetry(20, 20*time.Millisecond))
	patients, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Ada", patients[0].FirstName)
}

func TestLoadSurfacesPersistentCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s := New(path, WithReadRetry(2, time.Millisecond))
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveIsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patients.json")
	writePatients(t, path, []patient.Patient{{FirstName: "Old"}})

	s := New(path)
	require.NoError(t, s.Save([]patient.Patient{{FirstName: "New", Success: true}}))

	// The temp file must not linger and the canonical file must be fully new.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	patients, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "New", patients[0].FirstName)
	assert.True(t, patients[0].Success)
}

func TestWithLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	writePatients(t, path, nil)

	first := New(path)
	second := New(path)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- first.WithLock(context.Background(), func(context.Context) error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := second.WithLock(ctx, func(context.Context) error { return nil })
	assert.Error(t, err, "second process must not enter while the sweep lock is held")

	close(release)
	require.NoError(t, <-done)

	// After release the lock is free again.
	require.NoError(t, second.WithLock(context.Background(), func(context.Context) error { return nil }))
}
