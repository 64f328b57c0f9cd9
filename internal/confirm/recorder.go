// Package confirm persists the durable artifacts of the hunt: one immutable
// confirmation record per successful booking, an audit log of raw search
// results, and diagnostic snapshots of the portal when something goes wrong.
package confirm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slotseeker/slotseeker/internal/match"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// Record is the proof of one booking. Written exactly once, never mutated;
// the portal-side reservation is authoritative, this file is the receipt.
type Record struct {
	SignupTimestamp string `json:"signup_timestamp,omitempty"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip_code"`

	MaxDistance       string `json:"max_distance,omitempty"`
	CellPhone         string `json:"cell_phone,omitempty"`
	ContactPreference string `json:"contact_preference,omitempty"`
	TimesOfDay        []int  `json:"times_of_day,omitempty"`
	DaysOfWeek        []int  `json:"days_of_week,omitempty"`
	Notes             string `json:"notes,omitempty"`
	Age               string `json:"age,omitempty"`

	Confirmed string `json:"confirmed"`

	AppointmentInfo     string `json:"appointment_info"`
	AppointmentPharmacy string `json:"appointment_pharmacy"`
	AppointmentAddress  string `json:"appointment_address"`
	AppointmentPhone    string `json:"appointment_phone"`
	AppointmentDate     string `json:"appointment_date"`
	AppointmentTime     string `json:"appointment_time"`
	ConfirmationNumber  string `json:"confirmation_number"`
}

// Recorder writes records under a single output directory.
type Recorder struct {
	dir    string
	botID  string
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New creates a recorder writing into dir, labeling audit files with botID.
func New(dir, botID string, opts ...Option) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("confirm: create output dir: %w", err)
	}
	r := &Recorder{dir: dir, botID: botID, logger: logging.Default(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// WriteConfirmation persists a booking record, keyed by UTC timestamp and
// patient name so two bookings can never collide.
func (r *Recorder) WriteConfirmation(rec Record) (string, error) {
	name := fmt.Sprintf("confirmation_%s_%s_%s.json",
		r.now().UTC().Format("2006-01-02_15-04-05"),
		sanitize(rec.FirstName), sanitize(rec.LastName))
	path := filepath.Join(r.dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("confirm: marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("confirm: write %s: %w", path, err)
	}
	return path, nil
}

// auditEntry is one slot observation in the search audit file.
type auditEntry struct {
	SearchDatetime string `json:"search_datetime"`
	Address        string `json:"address"`
	Zip            string `json:"zip"`
	Phone          string `json:"phone"`
	DateAvail      string `json:"date_avail"`
	DayOfWeek      string `json:"day_of_week"`
}

// WriteSearchAudit logs the raw slots seen in one search. Files are bucketed
// by ten-minute window per bot identity and the first write in a bucket
// wins, which keeps the audit from ballooning during dense polling.
func (r *Recorder) WriteSearchAudit(slots []match.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	now := r.now()
	bucket := fmt.Sprintf("%s%d0-00", now.Format("2006-01-02_15-"), now.Minute()/10)
	path := filepath.Join(r.dir, fmt.Sprintf("%s_locations_%s.json", r.botID, bucket))

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	entries := make([]auditEntry, 0, len(slots))
	for _, s := range slots {
		entries = append(entries, auditEntry{
			SearchDatetime: now.Format(time.RFC3339),
			Address:        s.Address,
			Zip:            s.Region,
			Phone:          s.Phone,
			DateAvail:      s.Date.Format("2006-01-02"),
			DayOfWeek:      s.Weekday().String(),
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("confirm: marshal audit: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("confirm: write %s: %w", path, err)
	}
	return nil
}

// Snapshot saves a screenshot and optionally the page HTML for diagnosis.
// Failures are logged and swallowed; a missing snapshot must never abort a
// booking in flight.
func (r *Recorder) Snapshot(id string, png []byte, html string) {
	stamp := r.now().Format("2006-01-02_15-04-05")
	base := filepath.Join(r.dir, fmt.Sprintf("%s_%s", sanitize(id), stamp))

	if len(png) > 0 {
		if err := os.WriteFile(base+".png", png, 0o644); err != nil {
			r.logger.Error("confirm: write screenshot failed", "path", base+".png", "error", err)
		}
	}
	if html != "" {
		if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
			r.logger.Error("confirm: write page source failed", "path", base+".html", "error", err)
		}
	}
}

func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
