package session

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/slotseeker/slotseeker/internal/match"
	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/portal"
)

// Result-screen geometry. The portal renders each offering as a tall
// description card followed by spacer cards and a claim button; cards
// shorter than slotCardMinHeight are spacers.
const (
	slotCardMinHeight = 100.0
	claimOffset       = 2
	cardStride        = 5

	// The card repeating the word "Search" separates the echoed criteria
	// from the offerings; it lands within this container index window.
	searchMarkerLow  = 15
	searchMarkerHigh = 32
	searchMarkerSkip = 4
)

// parseResults walks the containers on the results screen and extracts one
// slot per offering card, paired with its claim control. An empty return
// with no error means the search came back dry.
func (d *Driver) parseResults(ctx context.Context) ([]match.Slot, []portal.Element, error) {
	containers, err := d.doc.ElementsByClass(ctx, classContainer)
	if err != nil {
		return nil, nil, err
	}
	if len(containers) == 0 {
		return nil, nil, nil
	}

	lastText, err := containers[len(containers)-1].Text(ctx)
	if err != nil {
		return nil, nil, err
	}
	if lastText == "Search" {
		// The criteria form is still the newest card: nothing came back.
		return nil, nil, nil
	}

	start := 0
	high := searchMarkerHigh
	if high > len(containers) {
		high = len(containers)
	}
	for i := searchMarkerLow; i < high; i++ {
		text, err := containers[i].Text(ctx)
		if err != nil {
			continue
		}
		if text == "Search" {
			start = i + searchMarkerSkip
			break
		}
	}
	if start == 0 || start >= len(containers) {
		d.logger.Error("results screen marker not found", "attempt", d.attemptID, "containers", len(containers))
		return nil, nil, nil
	}

	containers = containers[start:]
	var slots []match.Slot
	var controls []portal.Element
	for i := 1; i < len(containers)-1; {
		rect, err := containers[i].Rect(ctx)
		if err != nil {
			i++
			continue
		}
		if rect.Height < slotCardMinHeight {
			i++
			continue
		}
		text, err := containers[i].Text(ctx)
		if err != nil {
			i++
			continue
		}
		slot, err := d.parseSlotText(text)
		if err != nil {
			d.logger.Warn("unparseable slot card", "attempt", d.attemptID, "error", err)
			i++
			continue
		}
		if i+claimOffset >= len(containers) {
			break
		}
		slots = append(slots, slot)
		controls = append(controls, containers[i+claimOffset])
		i += cardStride
	}
	return slots, controls, nil
}

// parseSlotText reads one offering card:
//
//	100 Main St, Norristown, PA 19403
//	<spacer>
//	<spacer>
//	Phone: 610-555-0101
//	<spacer>
//	First Available: 03/09/2021
func (d *Driver) parseSlotText(text string) (match.Slot, error) {
	rows := strings.Split(text, "\n")
	if len(rows) < 6 {
		return match.Slot{}, fmt.Errorf("slot card has %d rows", len(rows))
	}

	date, err := time.Parse("01/02/2006", afterColon(rows[5]))
	if err != nil {
		return match.Slot{}, fmt.Errorf("slot date: %w", err)
	}

	slot := match.Slot{
		Address: rows[0],
		Region:  d.extractRegion(rows[0]),
		Phone:   afterColon(rows[3]),
		Date:    date,
	}
	return slot, nil
}

var regionPatterns = map[string]*regexp.Regexp{}

// extractRegion pulls the postal code out of an address line, anchored on
// the configured state abbreviation. An unrecognizable address yields an
// empty region, which can never match a target.
func (d *Driver) extractRegion(address string) string {
	pattern, ok := regionPatterns[d.cfg.SearchState]
	if !ok {
		pattern = regexp.MustCompile(regexp.QuoteMeta(d.cfg.SearchState) + `\s+(\d{5})`)
		regionPatterns[d.cfg.SearchState] = pattern
	}
	matches := pattern.FindAllStringSubmatch(address, -1)
	if len(matches) == 0 {
		d.logger.Warn("no region code in address", "attempt", d.attemptID, "address", address)
		return ""
	}
	return matches[len(matches)-1][1]
}

// timeOption is one selectable appointment time on the scheduling screen.
type timeOption struct {
	hour int
	text string
	el   portal.Element
}

// selectTimeSlot picks an appointment time the patient accepts, ordered by
// the configured policy, and submits the choice.
func (d *Driver) selectTimeSlot(ctx context.Context, p patient.Patient) error {
	options, err := d.doc.ElementsByTag(ctx, "option")
	if err != nil {
		return err
	}

	var times []timeOption
	for _, opt := range options {
		text, err := opt.Text(ctx)
		if err != nil {
			continue
		}
		hour, ok := parseClockHour(text)
		if !ok {
			continue
		}
		times = append(times, timeOption{hour: hour, text: strings.TrimSpace(text), el: opt})
	}
	d.logger.Info("available times", "attempt", d.attemptID, "count", len(times))

	var acceptable []timeOption
	for _, t := range times {
		if p.AllowsHour(t.hour) {
			acceptable = append(acceptable, t)
		}
	}
	if len(acceptable) == 0 {
		return &RejectionError{Reason: "no acceptable appointment time"}
	}

	order := match.Order(len(acceptable), d.cfg.TimeOrder, d.cfg.SwapProb, d.rnd)
	chosen := acceptable[order[0]]
	d.logger.Info("attempting to book time", "attempt", d.attemptID, "time", chosen.text)
	if err := chosen.el.Click(ctx); err != nil {
		return err
	}

	buttons, err := d.doc.ElementsByClass(ctx, classPushButton)
	if err != nil {
		return err
	}
	if len(buttons) == 0 {
		return &RejectionError{Reason: "time submit button missing"}
	}
	return buttons[len(buttons)-1].Click(ctx)
}

// parseClockHour reads a 12h display time ("2:30 PM") into a 24h hour.
// Range strings ("1:00 - 2:00") are not selectable times and are skipped.
func parseClockHour(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(s, ":") || strings.Contains(s, "-") {
		return 0, false
	}
	pm := strings.Contains(s, "pm")
	if !pm && !strings.Contains(s, "am") {
		return 0, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(strings.Split(s, ":")[0]))
	if err != nil {
		return 0, false
	}
	if pm && hour != 12 {
		hour += 12
	}
	return hour, true
}
