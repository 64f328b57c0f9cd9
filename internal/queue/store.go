// Package queue owns the shared patients file: the single source of truth
// for which patients still need an appointment. Several bot processes may
// work the same file, so every read-modify-write sequence runs under a named
// interprocess lock and saves are atomic replaces.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// ErrCorrupt indicates the patients file could not be parsed even after the
// read retries were exhausted. A transient parse failure usually means a
// concurrent writer was mid-write and resolves on retry; a persistent one is
// operator-level trouble and must surface loudly.
var ErrCorrupt = errors.New("queue: patients file is corrupt")

// Store reads and writes the patients file.
type Store struct {
	path        string
	lock        *flock.Flock
	logger      *logging.Logger
	readRetries int
	retryDelay  time.Duration
	lockPoll    time.Duration
}

// Option is a functional option for configuring the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithLockPath overrides the lock file location. The default is the store
// path plus ".lock", which scopes the lock to this particular queue.
func WithLockPath(path string) Option {
	return func(s *Store) { s.lock = flock.New(path) }
}

// WithReadRetry tunes how often and how long a malformed read is retried.
func WithReadRetry(retries int, delay time.Duration) Option {
	return func(s *Store) {
		s.readRetries = retries
		s.retryDelay = delay
	}
}

// New creates a store backed by the JSON file at path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		lock:        flock.New(path + ".lock"),
		logger:      logging.Default(),
		readRetries: 10,
		retryDelay:  time.Second,
		lockPoll:    250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithLock runs fn while holding the interprocess lock. Cooperating processes
// hold the lock for a whole sweep, which serializes their updates at the cost
// of some throughput.
func (s *Store) WithLock(ctx context.Context, fn func(context.Context) error) error {
	ok, err := s.lock.TryLockContext(ctx, s.lockPoll)
	if err != nil {
		return fmt.Errorf("queue: acquire lock %s: %w", s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("queue: lock %s not acquired", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Error("queue: release lock failed", "path", s.lock.Path(), "error", err)
		}
	}()

	return fn(ctx)
}

// Load reads every record in the file. Parse failures are retried with a
// bounded delay because a concurrent writer may be mid-write; after the
// retries are exhausted the error wraps ErrCorrupt.
func (s *Store) Load(ctx context.Context) ([]patient.Patient, error) {
	var lastErr error
	for attempt := 0; attempt <= s.readRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("queue: load canceled: %w", ctx.Err())
			case <-time.After(s.retryDelay):
			}
		}

		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("queue: read %s: %w", s.path, err)
		}

		var patients []patient.Patient
		if err := json.Unmarshal(data, &patients); err != nil {
			lastErr = err
			s.logger.Warn("queue: patients file unreadable, retrying",
				"path", s.path, "attempt", attempt, "error", err)
			continue
		}
		return patients, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, lastErr)
}

// LoadPending returns only the records whose appointment is not yet booked.
func (s *Store) LoadPending(ctx context.Context) ([]patient.Patient, error) {
	patients, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]patient.Patient, 0, len(patients))
	for _, p := range patients {
		if !p.Success {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

// Save atomically replaces the file with the given records: the JSON is
// written to a temporary file first and renamed over the canonical path, so
// a concurrent reader never observes a half-written file.
func (s *Store) Save(patients []patient.Patient) error {
	data, err := json.MarshalIndent(patients, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshal patients: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("queue: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("queue: replace %s: %w", s.path, err)
	}
	return nil
}
