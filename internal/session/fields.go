package session

import (
	"context"
	"strings"

	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/portal"
)

// locateSection finds where a form section's inputs begin. The portal's
// forms are not addressable by field name, so the anchor is structural: the
// newest text block containing headerText marks the section, and the first
// text input rendered below it is the section's first field. It returns
// that input's index along with the full input list.
func (d *Driver) locateSection(ctx context.Context, headerText string) (int, []portal.Element, error) {
	blocks, err := d.doc.ElementsByClass(ctx, classTextBlock)
	if err != nil {
		return 0, nil, err
	}

	headerY := -1.0
	for i := len(blocks) - 1; i >= 0 && i >= len(blocks)-20; i-- {
		text, err := blocks[i].Text(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(text, headerText) {
			rect, err := blocks[i].Rect(ctx)
			if err != nil {
				return 0, nil, err
			}
			headerY = rect.Y
			break
		}
	}
	if headerY < 0 {
		return 0, nil, &RejectionError{Reason: "section header not found: " + headerText}
	}

	inputs, err := d.doc.ElementsByClass(ctx, classTextInput)
	if err != nil {
		return 0, nil, err
	}
	for i, input := range inputs {
		rect, err := input.Rect(ctx)
		if err != nil {
			continue
		}
		if rect.Y > headerY {
			d.logger.Debug("located form section",
				"attempt", d.attemptID, "header", headerText, "first_input", i)
			return i, inputs, nil
		}
	}
	return 0, nil, &RejectionError{Reason: "no inputs below section header: " + headerText}
}

// fillPatientInfo completes the identity section: first name, last name,
// the three-part birth date, the confirmation toggle and the phone number.
// The birth-date widget sits between the name and phone inputs and is
// tabbed through from the last-name field.
func (d *Driver) fillPatientInfo(ctx context.Context, p patient.Patient) error {
	i, inputs, err := d.locateSection(ctx, "Patient Info")
	if err != nil {
		return err
	}
	if len(inputs) <= i+3 {
		return &RejectionError{Reason: "patient info section truncated"}
	}

	mm, dd, yyyy, err := p.DOBParts()
	if err != nil {
		return &RejectionError{Reason: err.Error()}
	}

	if err := clickAndType(ctx, inputs[i], p.FirstName); err != nil {
		return err
	}
	lastAndDOB := p.LastName + portal.KeyTab + mm + portal.KeyTab + dd + portal.KeyTab + yyyy
	if err := clickAndType(ctx, inputs[i+2], lastAndDOB); err != nil {
		return err
	}

	toggles, err := d.doc.ElementsByClass(ctx, classToggleInput)
	if err != nil {
		return err
	}
	if len(toggles) == 0 {
		return &RejectionError{Reason: "patient info toggle missing"}
	}
	if err := toggles[len(toggles)-1].Click(ctx); err != nil {
		return err
	}

	if err := clickAndType(ctx, inputs[i+3], p.Phone); err != nil {
		return err
	}

	d.logger.Info("submitting patient info", "attempt", d.attemptID)
	return d.clickLastPrimary(ctx)
}

// fillContactInfo completes the address section: street, city, state combo,
// zip and email. The input between zip and email is the optional unit
// number, left blank.
func (d *Driver) fillContactInfo(ctx context.Context, p patient.Patient) error {
	i, inputs, err := d.locateSection(ctx, "Patient Contact Info")
	if err != nil {
		return err
	}
	if len(inputs) <= i+4 {
		return &RejectionError{Reason: "contact info section truncated"}
	}

	if err := clickAndType(ctx, inputs[i], p.Address); err != nil {
		return err
	}
	if err := clickAndType(ctx, inputs[i+1], p.City); err != nil {
		return err
	}

	combos, err := d.doc.ElementsByClass(ctx, classChoiceCompact)
	if err != nil {
		return err
	}
	if len(combos) == 0 {
		return &RejectionError{Reason: "contact info state selector missing"}
	}
	if err := combos[len(combos)-1].SendKeys(ctx, p.State); err != nil {
		return err
	}

	if err := clickAndType(ctx, inputs[i+2], p.Zip); err != nil {
		return err
	}
	if err := clickAndType(ctx, inputs[i+4], p.Email); err != nil {
		return err
	}

	d.logger.Info("submitting contact info", "attempt", d.attemptID)
	return d.clickLastPrimary(ctx)
}

func clickAndType(ctx context.Context, el portal.Element, text string) error {
	if err := el.Click(ctx); err != nil {
		return err
	}
	return el.SendKeys(ctx, text)
}
