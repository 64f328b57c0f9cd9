package hunt

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotseeker/slotseeker/internal/confirm"
	"github.com/slotseeker/slotseeker/internal/notify"
	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/queue"
	"github.com/slotseeker/slotseeker/internal/regioncache"
	"github.com/slotseeker/slotseeker/internal/schedule"
	"github.com/slotseeker/slotseeker/internal/session"
)

type fakeBooker struct {
	results map[string]error // keyed by first name; nil means booked
	calls   []string
}

func (b *fakeBooker) Attempt(_ context.Context, p patient.Patient) (*session.Confirmation, error) {
	b.calls = append(b.calls, p.FirstName)
	if err := b.results[p.FirstName]; err != nil {
		return nil, err
	}
	return &session.Confirmation{
		Address: "100 Elm St, Norristown, PA 19403",
		Phone:   "610-555-0101",
		Date:    "03/09/2021",
		Time:    "10:00 AM",
		Number:  "WX1234",
		Message: "Hi " + p.FirstName + " -",
	}, nil
}

type captureSender struct {
	sent []notify.EmailMessage
}

func (c *captureSender) Send(_ context.Context, msg notify.EmailMessage) error {
	c.sent = append(c.sent, msg)
	return nil
}

func seedQueue(t *testing.T) *queue.Store {
	t.Helper()
	store := queue.New(filepath.Join(t.TempDir(), "patients.json"))
	require.NoError(t, store.Save([]patient.Patient{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", TargetZips: []string{"19403"}},
		{FirstName: "Bob", LastName: "Byrne", TargetZips: []string{"18102"}},
		{FirstName: "Cyn", LastName: "Church", Success: true},
	}))
	return store
}

func newTestHunter(store *queue.Store, booker Booker, opts ...Option) *Hunter {
	cfg := Config{BotID: "weis_pa", BotName: "Weis", SwapProb: 0}
	cache := regioncache.New(time.Minute)
	planner := schedule.New(11, []time.Weekday{time.Monday, time.Wednesday, time.Friday, time.Saturday})
	opts = append(opts, WithRand(rand.New(rand.NewSource(1))))
	return New(cfg, store, cache, planner, booker, opts...)
}

func TestSweepBooksAndPersists(t *testing.T) {
	store := seedQueue(t)
	booker := &fakeBooker{results: map[string]error{"Bob": session.ErrNoSlot}}
	sender := &captureSender{}

	dir := t.TempDir()
	recorder, err := confirm.New(dir, "weis_pa")
	require.NoError(t, err)

	h := newTestHunter(store, booker,
		WithRecorder(recorder),
		WithNotifier(notify.NewNotifier(sender, "ops@example.com", nil)))

	outcome, err := h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", outcome)
	assert.Equal(t, []string{"Ada", "Bob"}, booker.calls)

	// Ada's success reached the queue file; Cyn's old booking survived.
	patients, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 3)
	assert.True(t, patients[0].Success)
	assert.False(t, patients[1].Success)
	assert.True(t, patients[2].Success)

	// A confirmation record landed on disk.
	matches, err := filepath.Glob(filepath.Join(dir, "confirmation_*_Ada_Lovelace.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Patient and ops were both emailed.
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "WX1234")

	snap := h.Snapshot()
	assert.Equal(t, 1, snap.Bookings)
	assert.Equal(t, 1, snap.Pending)
	assert.Equal(t, "completed", snap.LastOutcome)
}

func TestSweepCachesDryRegions(t *testing.T) {
	store := seedQueue(t)
	booker := &fakeBooker{results: map[string]error{
		"Ada": session.ErrNoSlot,
		"Bob": session.ErrNoSlot,
	}}
	h := newTestHunter(store, booker)

	_, err := h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Bob"}, booker.calls)

	// Both regions are cached dry now, so the next sweep attempts nobody.
	_, err = h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Bob"}, booker.calls)
}

func TestSweepStopsOnExhaustedPortal(t *testing.T) {
	store := seedQueue(t)
	booker := &fakeBooker{results: map[string]error{
		"Ada": session.ErrPortalExhausted,
		"Bob": session.ErrNoSlot,
	}}
	h := newTestHunter(store, booker)

	outcome, err := h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "exhausted", outcome)
	// Bob was never attempted: the portal is dry for everyone.
	assert.Equal(t, []string{"Ada"}, booker.calls)
}

func TestSweepIdleWhenAllBooked(t *testing.T) {
	store := queue.New(filepath.Join(t.TempDir(), "patients.json"))
	require.NoError(t, store.Save([]patient.Patient{
		{FirstName: "Cyn", Success: true},
	}))
	booker := &fakeBooker{}
	h := newTestHunter(store, booker)

	outcome, err := h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "idle", outcome)
	assert.Empty(t, booker.calls)
}

func TestRunStopsWhenQueueFullyBooked(t *testing.T) {
	store := queue.New(filepath.Join(t.TempDir(), "patients.json"))
	require.NoError(t, store.Save([]patient.Patient{
		{FirstName: "Cyn", Success: true},
	}))
	h := newTestHunter(store, &fakeBooker{})

	require.NoError(t, h.Run(context.Background()))
}

func TestSweepToleratesAttemptFailures(t *testing.T) {
	store := seedQueue(t)
	booker := &fakeBooker{results: map[string]error{
		"Ada": errors.New("browser crashed"),
		"Bob": session.ErrNoSlot,
	}}
	h := newTestHunter(store, booker)

	outcome, err := h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", outcome)
	assert.Equal(t, []string{"Ada", "Bob"}, booker.calls)

	// A crashed attempt must not cache the patient's regions.
	booker.calls = nil
	_, err = h.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, booker.calls)
}

func TestSweepFailsWhenQueueUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	store := queue.New(path, queue.WithReadRetry(1, time.Millisecond))
	h := newTestHunter(store, &fakeBooker{})

	_, err := h.Sweep(context.Background())
	assert.ErrorIs(t, err, queue.ErrCorrupt)
}
