// Package hunt runs the long-lived polling loop: wake on the adaptive
// schedule, take the queue lock, and attempt a booking for every pending
// patient. One process hunts one portal; several bots share the queue file
// through the store's lock.
package hunt

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/slotseeker/slotseeker/internal/confirm"
	"github.com/slotseeker/slotseeker/internal/match"
	"github.com/slotseeker/slotseeker/internal/notify"
	"github.com/slotseeker/slotseeker/internal/observability/metrics"
	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/queue"
	"github.com/slotseeker/slotseeker/internal/regioncache"
	"github.com/slotseeker/slotseeker/internal/schedule"
	"github.com/slotseeker/slotseeker/internal/session"
	"github.com/slotseeker/slotseeker/internal/status"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// Booker runs one full portal attempt for one patient: search, match, and
// when a slot is found, book it.
type Booker interface {
	Attempt(ctx context.Context, p patient.Patient) (*session.Confirmation, error)
}

// Config carries the hunter's loop knobs.
type Config struct {
	// BotID labels this process ("weis_pa"); BotName is its display form.
	BotID   string
	BotName string

	// SwapProb drives the probabilistic reordering of the patient queue,
	// so the head of the list does not monopolize scarce slots.
	SwapProb float64
}

// Hunter owns the sweep loop and the shared state behind /status.
type Hunter struct {
	cfg      Config
	store    *queue.Store
	cache    *regioncache.Cache
	planner  *schedule.Planner
	booker   Booker
	recorder *confirm.Recorder
	notifier *notify.Notifier
	metrics  *metrics.SweepMetrics
	logger   *logging.Logger
	rnd      *rand.Rand
	now      func() time.Time

	mu          sync.Mutex
	startedAt   time.Time
	lastSweep   time.Time
	nextSweep   time.Time
	pending     int
	bookings    int
	lastOutcome string
}

// Option configures a Hunter.
type Option func(*Hunter)

// WithRecorder sets the confirmation recorder.
func WithRecorder(r *confirm.Recorder) Option {
	return func(h *Hunter) { h.recorder = r }
}

// WithNotifier sets the booking notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(h *Hunter) { h.notifier = n }
}

// WithMetrics sets the sweep metrics. A nil metrics struct is safe.
func WithMetrics(m *metrics.SweepMetrics) Option {
	return func(h *Hunter) { h.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(h *Hunter) { h.logger = logger }
}

// WithRand replaces the randomness source, for tests.
func WithRand(rnd *rand.Rand) Option {
	return func(h *Hunter) { h.rnd = rnd }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hunter) { h.now = now }
}

// New creates a hunter over the given queue, cache, planner and booker.
func New(cfg Config, store *queue.Store, cache *regioncache.Cache, planner *schedule.Planner, booker Booker, opts ...Option) *Hunter {
	h := &Hunter{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		planner: planner,
		booker:  booker,
		logger:  logging.Default(),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.now()
	return h
}

// Snapshot reports the hunter's progress for the status endpoint.
func (h *Hunter) Snapshot() status.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return status.Snapshot{
		Bot:         h.cfg.BotID,
		StartedAt:   h.startedAt,
		LastSweep:   h.lastSweep,
		NextSweep:   h.nextSweep,
		Pending:     h.pending,
		Bookings:    h.bookings,
		LastOutcome: h.lastOutcome,
	}
}

// Run sweeps until every patient is booked or ctx is cancelled. Errors from
// individual attempts are absorbed into the sweep outcome; only queue-store
// failures end the run, because a queue that cannot be read or written
// safely must not be hunted against.
func (h *Hunter) Run(ctx context.Context) error {
	for {
		outcome, err := h.Sweep(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		if outcome == "idle" {
			h.logger.Warn("every patient is booked, stopping", "bot", h.cfg.BotID)
			return nil
		}

		sleep := h.planner.NextSleep(h.now())
		h.metrics.ObservePlannedSleep(sleep.Seconds())
		h.setNextSweep(h.now().Add(sleep))
		h.logger.Info("sweep finished",
			"bot", h.cfg.BotID, "outcome", outcome, "next_sweep_in", sleep.Round(time.Second).String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// Sweep takes the queue lock and attempts every pending patient once. It
// returns the sweep outcome: "idle" when nothing was pending, "exhausted"
// when the portal reported no inventory at all, "completed" otherwise.
func (h *Hunter) Sweep(ctx context.Context) (string, error) {
	var outcome string
	err := h.store.WithLock(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = h.sweepLocked(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.lastSweep = h.now()
	h.lastOutcome = outcome
	pending := h.pending
	h.mu.Unlock()
	h.metrics.ObserveSweep(outcome, pending)
	return outcome, nil
}

func (h *Hunter) sweepLocked(ctx context.Context) (string, error) {
	patients, err := h.store.Load(ctx)
	if err != nil {
		return "", err
	}

	var pending []int
	for i, p := range patients {
		if !p.Success {
			pending = append(pending, i)
		}
	}
	h.setPending(len(pending))
	if len(pending) == 0 {
		h.logger.Info("queue fully booked, nothing to do", "bot", h.cfg.BotID)
		return "idle", nil
	}

	// Shuffle adjacent pairs so queue position is a tendency, not a rank.
	match.AdjacentSwap(pending, h.cfg.SwapProb, h.rnd)
	h.logger.Info("sweep starting", "bot", h.cfg.BotID, "pending", len(pending))

	outcome := "completed"
	for _, idx := range pending {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p := patients[idx]

		if len(p.TargetZips) > 0 && h.cache.AllCached(p.TargetZips) {
			h.logger.Info("skipping patient, all regions recently dry",
				"patient", p.FullName(), "regions", len(p.TargetZips))
			h.metrics.ObserveCacheSkip()
			continue
		}

		started := h.now()
		conf, attemptErr := h.booker.Attempt(ctx, p)
		cls := session.Classify(attemptErr)
		h.metrics.ObserveAttempt(cls, h.now().Sub(started).Seconds())

		switch {
		case attemptErr == nil:
			patients[idx].Success = true
			if err := h.store.Save(patients); err != nil {
				// Booked but not persisted: stop before we book twice.
				return "", err
			}
			h.recordBooking(ctx, p, conf)
			h.setPending(len(pending) - 1)
		case errors.Is(attemptErr, session.ErrPortalExhausted):
			h.logger.Warn("portal exhausted, ending sweep early", "bot", h.cfg.BotID)
			return "exhausted", nil
		case errors.Is(attemptErr, session.ErrNoSlot):
			h.cache.Mark(p.TargetZips)
			h.logger.Info("no slot for patient", "patient", p.FullName())
		default:
			h.logger.Error("attempt failed",
				"patient", p.FullName(), "outcome", cls, "error", attemptErr)
		}
	}
	return outcome, nil
}

// recordBooking writes the confirmation record and sends notifications.
// Both are best effort at this point; the appointment is already held.
func (h *Hunter) recordBooking(ctx context.Context, p patient.Patient, conf *session.Confirmation) {
	h.mu.Lock()
	h.bookings++
	h.mu.Unlock()

	rec := buildRecord(h.cfg.BotName, p, conf)
	if h.recorder != nil {
		if path, err := h.recorder.WriteConfirmation(rec); err != nil {
			h.logger.Error("confirmation write failed", "patient", p.FullName(), "error", err)
		} else {
			h.logger.Warn("booking recorded", "patient", p.FullName(), "path", path)
		}
	}
	if h.notifier != nil {
		if err := h.notifier.BookingConfirmed(ctx, rec); err != nil {
			h.logger.Error("booking notification failed", "patient", p.FullName(), "error", err)
		}
	}
}

func buildRecord(botName string, p patient.Patient, conf *session.Confirmation) confirm.Record {
	return confirm.Record{
		SignupTimestamp:   p.SignupTimestamp,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		DOB:               p.DOBDisplay(),
		Phone:             p.Phone,
		Email:             p.Email,
		Address:           p.Address,
		City:              p.City,
		State:             p.State,
		Zip:               p.Zip,
		MaxDistance:       p.MaxDistance,
		CellPhone:         p.CellPhone,
		ContactPreference: p.ContactPreference,
		TimesOfDay:        p.HoursOfDay,
		DaysOfWeek:        p.DaysOfWeek,
		Notes:             p.Notes,
		Age:               p.Age,
		Confirmed:         "yes",

		AppointmentInfo:     conf.Message,
		AppointmentPharmacy: botName,
		AppointmentAddress:  conf.Address,
		AppointmentPhone:    conf.Phone,
		AppointmentDate:     conf.Date,
		AppointmentTime:     conf.Time,
		ConfirmationNumber:  conf.Number,
	}
}

func (h *Hunter) setPending(n int) {
	h.mu.Lock()
	h.pending = n
	h.mu.Unlock()
}

func (h *Hunter) setNextSweep(t time.Time) {
	h.mu.Lock()
	h.nextSweep = t
	h.mu.Unlock()
}
