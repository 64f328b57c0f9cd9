// Package patient defines the patient preference record that drives the
// appointment hunt, plus the parsing helpers used when importing records
// from the signup sheet.
package patient

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Patient is one work item in the shared queue file. Records are created by
// the importer and mutated only when a booking reaches a terminal outcome;
// confirmed records stay in the file as an audit trail.
type Patient struct {
	SignupTimestamp string `json:"signup_timestamp,omitempty"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"` // MMDDYYYY digits
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`

	ContactPreference string `json:"contact_preference,omitempty"`
	CellPhone         string `json:"cell_phone,omitempty"`
	Notes             string `json:"notes,omitempty"`
	Age               string `json:"age,omitempty"`
	MaxDistance       string `json:"max_distance,omitempty"`

	// TargetZips is the ranked region list, most preferred first.
	TargetZips []string `json:"target_zip_codes"`

	// DaysOfWeek uses time.Weekday numbering (Sunday = 0). Empty means any.
	DaysOfWeek []int `json:"days_of_week,omitempty"`

	// HoursOfDay holds acceptable 24h appointment hours. Empty means any.
	HoursOfDay []int `json:"times_of_day,omitempty"`

	// MinDateOffset raises the global minimum days-ahead for this patient.
	MinDateOffset int `json:"min_date_offset,omitempty"`

	Success bool `json:"success"`
}

// FullName returns "First Last" for logs and file names.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AllowsDay reports whether the patient accepts appointments on the weekday.
func (p Patient) AllowsDay(day time.Weekday) bool {
	if len(p.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range p.DaysOfWeek {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// AllowsHour reports whether the patient accepts appointments at the 24h hour.
func (p Patient) AllowsHour(hour int) bool {
	if len(p.HoursOfDay) == 0 {
		return true
	}
	for _, h := range p.HoursOfDay {
		if h == hour {
			return true
		}
	}
	return false
}

// DOBParts splits the MMDDYYYY date of birth into its segments. The portal's
// birth-date widget takes month, day and year as separate inputs.
func (p Patient) DOBParts() (mm, dd, yyyy string, err error) {
	if len(p.DOB) != 8 {
		return "", "", "", fmt.Errorf("patient: dob %q is not MMDDYYYY", p.DOB)
	}
	return p.DOB[:2], p.DOB[2:4], p.DOB[4:], nil
}

// DOBDisplay renders the date of birth as M/D/YYYY for confirmation records.
func (p Patient) DOBDisplay() string {
	mm, dd, yyyy, err := p.DOBParts()
	if err != nil {
		return p.DOB
	}
	return fmt.Sprintf("%d/%d/%s", atoiLoose(mm), atoiLoose(dd), yyyy)
}

func atoiLoose(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// CleanPhone strips everything but digits from a phone number.
func CleanPhone(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// FormatDOB normalizes a sheet date of birth ("M/D/YY" or "M/D/YYYY") to
// MMDDYYYY. Two-digit years are assumed to be 19xx; nobody born after 1999
// was in the eligible groups.
func FormatDOB(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("patient: cannot parse dob %q", s)
	}
	m, d, y := atoiLoose(parts[0]), atoiLoose(parts[1]), strings.TrimSpace(parts[2])
	if !strings.HasPrefix(y, "19") && !strings.HasPrefix(y, "20") {
		if len(y) < 2 {
			return "", fmt.Errorf("patient: cannot parse dob year %q", parts[2])
		}
		y = "19" + y[len(y)-2:]
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || len(y) != 4 {
		return "", fmt.Errorf("patient: dob %q out of range", s)
	}
	return fmt.Sprintf("%02d%02d%s", m, d, y), nil
}

// ParseDays converts the signup sheet's free-text weekday preference
// ("Monday, Thursday", "any", "") to time.Weekday values. Empty output means
// no restriction.
func ParseDays(s string) []int {
	if s == "" || strings.Contains(strings.ToLower(s), "any") {
		return nil
	}
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		if day, ok := names[strings.ToLower(strings.TrimSpace(part))]; ok {
			days = append(days, int(day))
		}
	}
	return days
}

// ParseHours converts the signup sheet's time-of-day blocks to 24h hours.
// The sheet offers three blocks: "10AM-1PM", "1PM-4PM" and "4PM-7PM".
// Empty output means no restriction.
func ParseHours(s string) []int {
	if s == "" || strings.Contains(strings.ToLower(s), "any") {
		return nil
	}
	var hours []int
	for _, part := range strings.Split(s, ",") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(part), "10AM"):
			hours = append(hours, 10, 11, 12)
		case strings.HasPrefix(strings.TrimSpace(part), "1PM"):
			hours = append(hours, 13, 14, 15)
		case strings.HasPrefix(strings.TrimSpace(part), "4PM"):
			hours = append(hours, 16, 17, 18)
		}
	}
	return hours
}
