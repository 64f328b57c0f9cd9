// Package session drives one end-to-end interaction with the portal: open,
// search, and when a slot matches, walk the multi-step registration wizard
// through to a confirmation number. The driver talks only to the
// portal.Document capability set, so it runs identically against a live
// browser or a scripted fake.
//
// The portal is a chat-style card UI. Screens are appended, never replaced,
// so "the next screen rendered" is observable only as "more elements of a
// kind than before", so every transition guard is a bounded wait on an
// element-count increase. Form fields carry no stable names either; fields
// are located structurally, as the first input cluster rendered below the
// section header that labels them.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slotseeker/slotseeker/internal/confirm"
	"github.com/slotseeker/slotseeker/internal/match"
	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/portal"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// Adaptive-card element classes and markers used by the portal.
const (
	classPushButton     = "ac-pushButton.style-default"
	classPrimaryButton  = "ac-pushButton.style-default.primary.style-positive"
	classTextBlock      = "ac-textBlock"
	classRichTextBlock  = "ac-richTextBlock"
	classTextInput      = "ac-input.ac-textInput"
	classDateInput      = "ac-input.ac-dateInput"
	classToggleInput    = "ac-input.ac-toggleInput"
	classChoiceCompact  = "ac-input.ac-multichoiceInput.ac-choiceSetInput-compact"
	classChoiceExpanded = "ac-input.ac-choiceSetInput-expanded"
	classContainer      = "ac-container"

	nameActionType = "actionType"
	nameGender     = "gender"

	textScheduleNew  = "Schedule a new appointment"
	textTryAgain     = "Try Again"
	textCash         = "Cash"
	textConfirmation = "Confirmation Number"
)

const (
	initialLoadTimeout = 60 * time.Second
	claimTimeout       = 40 * time.Second
	slowStepTimeout    = 200 * time.Second
	confirmTimeout     = 120 * time.Second

	defaultStepTimeout = 45 * time.Second
	defaultPoll        = 500 * time.Millisecond
	confirmPoll        = time.Second
)

// Config carries the per-process knobs the driver needs. It is threaded in
// explicitly from the orchestrator; the driver holds no ambient state.
type Config struct {
	PortalURL string

	// BotName labels the pharmacy in confirmation summaries.
	BotName string

	// SearchState is the two-letter region the portal search screen
	// expects, also used to recognize region codes in result addresses.
	SearchState string

	// DayOffset is the minimum days-ahead for the search start date; a
	// patient's own offset can push it further out.
	DayOffset int

	// Live gates the final follow-up answer. When false the wizard stops
	// at the last screen without reserving anything.
	Live bool

	TimeOrder match.Policy
	SwapProb  float64

	// StepTimeout bounds the quick transitions (search, form submits).
	StepTimeout time.Duration
	Poll        time.Duration
}

// Driver runs one attempt against one live portal document. It is owned by
// a single attempt and discarded afterwards, whatever the outcome.
type Driver struct {
	doc      portal.Document
	cfg      Config
	recorder *confirm.Recorder
	logger   *logging.Logger
	rnd      *rand.Rand
	now      func() time.Time

	attemptID string
	state     State
}

// Option configures a Driver.
type Option func(*Driver)

// WithRand replaces the randomness source, for tests.
func WithRand(rnd *rand.Rand) Option {
	return func(d *Driver) { d.rnd = rnd }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New creates a driver for one attempt. recorder may be nil, in which case
// no audit files or snapshots are written.
func New(doc portal.Document, cfg Config, recorder *confirm.Recorder, logger *logging.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.StepTimeout == 0 {
		cfg.StepTimeout = defaultStepTimeout
	}
	if cfg.Poll == 0 {
		cfg.Poll = defaultPoll
	}
	d := &Driver{
		doc:       doc,
		cfg:       cfg,
		recorder:  recorder,
		logger:    logger,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		attemptID: uuid.NewString(),
		state:     StateStart,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the driver's current wizard state.
func (d *Driver) State() State {
	return d.state
}

// Close tears the portal session down. Safe to call after any outcome.
func (d *Driver) Close(ctx context.Context) {
	if err := d.doc.Close(ctx); err != nil {
		d.logger.Warn("session close failed", "attempt", d.attemptID, "error", err)
	}
}

// Claim is a matched slot together with its claim control on the results
// screen, ready to hand to Book.
type Claim struct {
	Slot    match.Slot
	element portal.Element
}

// Confirmation is the terminal proof the portal issued for a booking.
type Confirmation struct {
	Address string
	Phone   string
	Date    string
	Time    string
	Number  string
	Message string
}

// FindSlot opens the portal, searches with the patient's criteria and
// matches the results against their preferences. It returns ErrNoSlot when
// the search is dry for this patient and ErrPortalExhausted when the portal
// is dry for everyone.
func (d *Driver) FindSlot(ctx context.Context, p patient.Patient) (*Claim, error) {
	d.setState(StateStart)
	if err := d.doc.Navigate(ctx, d.cfg.PortalURL); err != nil {
		return nil, err
	}

	buttons, err := d.openSearchScreen(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.enterSearchCriteria(ctx, p, buttons); err != nil {
		return nil, err
	}
	d.setState(StateSearchCriteriaEntered)

	if _, err := d.waitNextScreen(ctx, len(buttons), d.cfg.StepTimeout); err != nil {
		return nil, err
	}

	slots, controls, err := d.parseResults(ctx)
	if err != nil {
		return nil, err
	}
	d.setState(StateResultsParsed)
	d.logger.Info("search results parsed", "attempt", d.attemptID, "slots", len(slots))

	if d.recorder != nil {
		if err := d.recorder.WriteSearchAudit(slots); err != nil {
			d.logger.Error("search audit write failed", "error", err)
		}
	}

	idx, ok := match.Select(p.TargetZips, slots, allowedDays(p))
	if !ok {
		return nil, ErrNoSlot
	}

	slot := slots[idx]
	d.logger.Info("matching slot found",
		"attempt", d.attemptID,
		"patient", p.FullName(),
		"address", slot.Address,
		"day_of_week", slot.Weekday().String())
	return &Claim{Slot: slot, element: controls[idx]}, nil
}

// openSearchScreen waits for the portal's initial card, selects the
// schedule-a-new-appointment action and advances to the criteria form. It
// returns the action buttons currently rendered so the caller can detect
// the next screen.
func (d *Driver) openSearchScreen(ctx context.Context) ([]portal.Element, error) {
	if _, err := portal.WaitForMore(ctx, func(ctx context.Context) ([]portal.Element, error) {
		return d.doc.ElementsByName(ctx, nameActionType)
	}, 0, initialLoadTimeout, d.cfg.Poll, nil); err != nil {
		return nil, d.stepErr(err)
	}

	choices, err := d.doc.ElementsByClass(ctx, classChoiceExpanded)
	if err != nil {
		return nil, err
	}
	if len(choices) == 0 {
		return nil, &RejectionError{Reason: "no action choices rendered"}
	}
	text, err := choices[len(choices)-1].Text(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(text, textScheduleNew) {
		return nil, &RejectionError{Reason: "schedule option missing"}
	}

	labels, err := d.doc.ElementsByTag(ctx, "label")
	if err != nil {
		return nil, err
	}
	clicked := false
	for _, label := range labels {
		t, err := label.Text(ctx)
		if err != nil {
			continue
		}
		if t == textScheduleNew {
			if err := label.Click(ctx); err != nil {
				return nil, err
			}
			clicked = true
			break
		}
	}
	if !clicked {
		return nil, &RejectionError{Reason: "schedule option not clickable"}
	}

	buttons, err := d.waitNextScreen(ctx, 0, slowStepTimeout)
	if err != nil {
		return nil, err
	}
	if err := buttons[len(buttons)-1].Click(ctx); err != nil {
		return nil, err
	}
	return d.waitNextScreen(ctx, len(buttons), slowStepTimeout)
}

// enterSearchCriteria fills the region, start date, anchor zip and distance
// controls, then submits the search.
func (d *Driver) enterSearchCriteria(ctx context.Context, p patient.Patient, buttons []portal.Element) error {
	combos, err := d.doc.ElementsByClass(ctx, classChoiceCompact)
	if err != nil {
		return err
	}
	if len(combos) == 0 {
		return &RejectionError{Reason: "search form missing region selector"}
	}
	if err := combos[0].SendKeys(ctx, d.cfg.SearchState); err != nil {
		return err
	}

	offset := d.cfg.DayOffset
	if p.MinDateOffset > offset {
		offset = p.MinDateOffset
	}
	minDate := d.now().AddDate(0, 0, offset).Format("2006-01-02")
	d.logger.Info("entering search criteria",
		"attempt", d.attemptID, "min_date", minDate, "zip", p.Zip)

	dates, err := d.doc.ElementsByClass(ctx, classDateInput)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return &RejectionError{Reason: "search form missing date input"}
	}
	if err := dates[0].SendKeys(ctx, minDate); err != nil {
		return err
	}

	inputs, err := d.doc.ElementsByClass(ctx, classTextInput)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return &RejectionError{Reason: "search form missing zip input"}
	}
	if err := inputs[len(inputs)-1].SendKeys(ctx, p.Zip); err != nil {
		return err
	}

	// Widest radius the combo offers: type the first digit, arrow down.
	combos, err = d.doc.ElementsByClass(ctx, classChoiceCompact)
	if err != nil {
		return err
	}
	distance := combos[len(combos)-1]
	if err := distance.SendKeys(ctx, "1"+strings.Repeat(portal.KeyDown, 3)); err != nil {
		return err
	}

	return buttons[len(buttons)-1].Click(ctx)
}

// Book walks the registration wizard for a claimed slot. Partial progress
// is never persisted: either it returns a Confirmation or the patient is
// left fully unconfirmed.
func (d *Driver) Book(ctx context.Context, p patient.Patient, claim *Claim) (*Confirmation, error) {
	conf, err := d.book(ctx, p, claim)
	if err != nil {
		d.setState(StateRejected)
		return nil, err
	}
	d.setState(StateConfirmed)
	return conf, nil
}

func (d *Driver) book(ctx context.Context, p patient.Patient, claim *Claim) (*Confirmation, error) {
	buttons, err := d.doc.ElementsByTag(ctx, "button")
	if err != nil {
		return nil, err
	}
	if err := claim.element.Click(ctx); err != nil {
		return nil, err
	}
	if buttons, err = d.waitMoreButtons(ctx, len(buttons), claimTimeout); err != nil {
		return nil, err
	}
	d.setState(StateSlotClaimed)

	if err := d.acceptConsent(ctx); err != nil {
		return nil, err
	}
	if buttons, err = d.waitMoreButtons(ctx, len(buttons), slowStepTimeout); err != nil {
		return nil, err
	}
	d.setState(StateConsentAccepted)

	if err := d.fillPatientInfo(ctx, p); err != nil {
		return nil, err
	}
	if buttons, err = d.waitMoreButtons(ctx, len(buttons), d.cfg.StepTimeout); err != nil {
		return nil, err
	}
	d.setState(StatePatientInfoSubmitted)

	if err := d.fillContactInfo(ctx, p); err != nil {
		return nil, err
	}
	if buttons, err = d.waitMoreButtons(ctx, len(buttons), d.cfg.StepTimeout); err != nil {
		return nil, err
	}
	d.setState(StateContactInfoSubmitted)

	if err := d.submitDemographics(ctx); err != nil {
		return nil, err
	}
	if buttons, err = d.waitMoreButtons(ctx, len(buttons), slowStepTimeout); err != nil {
		return nil, err
	}
	d.setState(StateDemographicsSubmitted)

	selected, err := d.selectCashPayment(ctx)
	if err != nil {
		return nil, err
	}
	if selected {
		if buttons, err = d.waitMoreButtons(ctx, len(buttons), slowStepTimeout); err != nil {
			return nil, err
		}
	}
	d.setState(StatePaymentMethodSelected)

	d.snapshot(ctx, p)

	if err := d.selectTimeSlot(ctx, p); err != nil {
		return nil, err
	}
	if _, err = d.waitMoreButtons(ctx, len(buttons), slowStepTimeout); err != nil {
		return nil, err
	}
	d.setState(StateTimeSlotSelected)

	if err := d.answerFollowUp(ctx); err != nil {
		return nil, err
	}
	d.setState(StateFollowUpAnswered)
	if !d.cfg.Live {
		return nil, &RejectionError{Reason: "dry run: declined final booking step"}
	}

	d.setState(StateConfirmationAwaited)
	return d.awaitConfirmation(ctx, p)
}

// acceptConsent ticks the terms checkbox and submits.
func (d *Driver) acceptConsent(ctx context.Context) error {
	toggles, err := d.doc.ElementsByClass(ctx, classToggleInput)
	if err != nil {
		return err
	}
	if len(toggles) == 0 {
		return &RejectionError{Reason: "consent checkbox missing"}
	}
	if err := toggles[len(toggles)-1].Click(ctx); err != nil {
		return err
	}
	return d.clickLastPrimary(ctx)
}

// submitDemographics answers the gender prompt with the last offered option
// and submits.
func (d *Driver) submitDemographics(ctx context.Context) error {
	genders, err := d.doc.ElementsByName(ctx, nameGender)
	if err != nil {
		return err
	}
	if len(genders) == 0 {
		return &RejectionError{Reason: "demographics prompt missing"}
	}
	if err := genders[len(genders)-1].Click(ctx); err != nil {
		return err
	}
	return d.clickLastPrimary(ctx)
}

// selectCashPayment picks the cash option when the payment screen offers
// one. Some portal variants skip the screen entirely, so a miss is not an
// error.
func (d *Driver) selectCashPayment(ctx context.Context) (bool, error) {
	spans, err := d.doc.ElementsByTag(ctx, "span")
	if err != nil {
		return false, err
	}
	return clickLastWithText(ctx, spans, 20, textCash)
}

// answerFollowUp answers the final are-you-sure prompt: Yes books the
// appointment for real, No abandons it, which is the dry-run fail-safe.
func (d *Driver) answerFollowUp(ctx context.Context) error {
	answer := "No"
	if d.cfg.Live {
		answer = "Yes"
	}
	spans, err := d.doc.ElementsByTag(ctx, "span")
	if err != nil {
		return err
	}
	clicked, err := clickLastWithText(ctx, spans, 20, answer)
	if err != nil {
		return err
	}
	if !clicked {
		return &RejectionError{Reason: "follow-up prompt missing"}
	}
	d.logger.Info("answered follow-up", "attempt", d.attemptID, "answer", answer)
	return nil
}

// awaitConfirmation watches for the post-submission screen and requires the
// confirmation-number marker to appear in its final block.
func (d *Driver) awaitConfirmation(ctx context.Context, p patient.Patient) (*Confirmation, error) {
	before, err := d.doc.ElementsByClass(ctx, classRichTextBlock)
	if err != nil {
		return nil, err
	}
	d.snapshot(ctx, p)

	blocks, err := portal.WaitForMore(ctx, func(ctx context.Context) ([]portal.Element, error) {
		return d.doc.ElementsByClass(ctx, classRichTextBlock)
	}, len(before), confirmTimeout, confirmPoll, nil)
	if err != nil {
		if errors.Is(err, portal.ErrWaitTimeout) {
			d.snapshot(ctx, p)
			return nil, &RejectionError{Reason: "no confirmation"}
		}
		return nil, err
	}

	last, err := blocks[len(blocks)-1].Text(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(last, textConfirmation) {
		d.snapshot(ctx, p)
		return nil, &RejectionError{Reason: "no confirmation"}
	}

	texts := make([]string, 0, 6)
	start := len(blocks) - 6
	if start < 0 {
		start = 0
	}
	for _, block := range blocks[start:] {
		t, err := block.Text(ctx)
		if err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}

	conf := parseConfirmation(texts)
	conf.Message = strings.Join(append([]string{
		fmt.Sprintf("Hi %s -", titleCase(p.FirstName)),
		"Here is your appointment information:",
		fmt.Sprintf("%s Pharmacy", titleCase(d.cfg.BotName)),
	}, texts...), "\n")

	d.logger.Warn("booking confirmed",
		"attempt", d.attemptID,
		"patient", p.FullName(),
		"confirmation_number", conf.Number)
	d.snapshot(ctx, p)
	return conf, nil
}

// parseConfirmation extracts the appointment fields from the confirmation
// screen's final six blocks: address, phone, date, time, then the number in
// the last block.
func parseConfirmation(texts []string) *Confirmation {
	conf := &Confirmation{}
	if len(texts) < 6 {
		return conf
	}
	tail := texts[len(texts)-6:]
	conf.Address = afterColon(tail[0])
	conf.Phone = afterColon(tail[1])
	conf.Date = afterColon(tail[2])
	conf.Time = clockFromLabel(tail[3])
	conf.Number = lastWord(tail[5])
	return conf
}

func (d *Driver) setState(s State) {
	d.logger.Debug("session state", "attempt", d.attemptID, "from", string(d.state), "to", string(s))
	d.state = s
}

// waitNextScreen waits for more action buttons than n, which is how a new
// card announces itself. While polling it also watches for the portal's
// retry-exhausted marker and converts it to ErrPortalExhausted.
func (d *Driver) waitNextScreen(ctx context.Context, n int, timeout time.Duration) ([]portal.Element, error) {
	elements, err := portal.WaitForMore(ctx, func(ctx context.Context) ([]portal.Element, error) {
		return d.doc.ElementsByClass(ctx, classPushButton)
	}, n, timeout, d.cfg.Poll, d.checkExhausted)
	if err != nil {
		return nil, d.stepErr(err)
	}
	return elements, nil
}

// waitMoreButtons waits for the raw button count to grow past n.
func (d *Driver) waitMoreButtons(ctx context.Context, n int, timeout time.Duration) ([]portal.Element, error) {
	elements, err := portal.WaitForMore(ctx, func(ctx context.Context) ([]portal.Element, error) {
		return d.doc.ElementsByTag(ctx, "button")
	}, n, timeout, d.cfg.Poll, nil)
	if err != nil {
		return nil, d.stepErr(err)
	}
	return elements, nil
}

// checkExhausted looks for the portal's trailing retry action, its way of
// saying no inventory exists anywhere right now.
func (d *Driver) checkExhausted(ctx context.Context) error {
	buttons, err := d.doc.ElementsByTag(ctx, "button")
	if err != nil || len(buttons) < 3 {
		return nil
	}
	text, err := buttons[len(buttons)-3].Text(ctx)
	if err != nil {
		return nil
	}
	if text == textTryAgain {
		d.logger.Warn("portal reports no appointments available", "attempt", d.attemptID)
		return ErrPortalExhausted
	}
	return nil
}

// clickLastPrimary clicks the newest primary action button.
func (d *Driver) clickLastPrimary(ctx context.Context) error {
	primaries, err := d.doc.ElementsByClass(ctx, classPrimaryButton)
	if err != nil {
		return err
	}
	if len(primaries) == 0 {
		return &RejectionError{Reason: "primary action missing"}
	}
	return primaries[len(primaries)-1].Click(ctx)
}

// snapshot captures diagnostics, best effort.
func (d *Driver) snapshot(ctx context.Context, p patient.Patient) {
	if d.recorder == nil {
		return
	}
	png, err := d.doc.Screenshot(ctx)
	if err != nil {
		d.logger.Debug("screenshot failed", "attempt", d.attemptID, "error", err)
	}
	html, err := d.doc.PageSource(ctx)
	if err != nil {
		d.logger.Debug("page source failed", "attempt", d.attemptID, "error", err)
	}
	d.recorder.Snapshot(p.FullName(), png, html)
}

func (d *Driver) stepErr(err error) error {
	if errors.Is(err, portal.ErrWaitTimeout) {
		return &StepTimeoutError{Step: d.state}
	}
	return err
}

// clickLastWithText scans up to limit elements from the end for an exact
// text match and clicks the newest hit.
func clickLastWithText(ctx context.Context, elements []portal.Element, limit int, text string) (bool, error) {
	for i := len(elements) - 1; i >= 0 && i >= len(elements)-limit; i-- {
		t, err := elements[i].Text(ctx)
		if err != nil {
			continue
		}
		if t == text {
			if err := elements[i].Click(ctx); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func allowedDays(p patient.Patient) []time.Weekday {
	days := make([]time.Weekday, 0, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return days
}

func afterColon(s string) string {
	parts := strings.Split(s, ":")
	return strings.TrimSpace(parts[len(parts)-1])
}

// clockFromLabel pulls a clock time out of a labelled line, rejoining the
// hour and minute fields the label's own colon split apart.
func clockFromLabel(s string) string {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return afterColon(s)
	}
	return strings.TrimSpace(parts[len(parts)-2] + ":" + parts[len(parts)-1])
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
