package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slotseeker/slotseeker/internal/confirm"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// Notifier fans booking outcomes out to the patient and to the operator
// mailbox that watches the bot.
type Notifier struct {
	sender   EmailSender
	opsEmail string
	logger   *logging.Logger
}

// NewNotifier creates a notifier. opsEmail may be empty, in which case only
// the patient is notified.
func NewNotifier(sender EmailSender, opsEmail string, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{sender: sender, opsEmail: opsEmail, logger: logger}
}

// BookingConfirmed emails the appointment details to the patient and copies
// the operator. A failed send is reported but never unwinds the booking; the
// appointment is already held either way.
func (n *Notifier) BookingConfirmed(ctx context.Context, rec confirm.Record) error {
	name := strings.TrimSpace(rec.FirstName + " " + rec.LastName)
	subject := fmt.Sprintf("Appointment confirmed for %s on %s", name, rec.AppointmentDate)
	body := bookingBody(rec)

	var errs []error
	if rec.Email != "" {
		if err := n.sender.Send(ctx, EmailMessage{
			To:      rec.Email,
			ToName:  name,
			Subject: subject,
			Body:    body,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	if n.opsEmail != "" {
		if err := n.sender.Send(ctx, EmailMessage{
			To:      n.opsEmail,
			Subject: subject,
			Body:    body,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		n.logger.Error("booking notification failed", "patient", name, "errors", len(errs))
		return errors.Join(errs...)
	}
	n.logger.Info("booking notification sent", "patient", name, "ops_copy", n.opsEmail != "")
	return nil
}

func bookingBody(rec confirm.Record) string {
	lines := []string{
		fmt.Sprintf("Hi %s,", rec.FirstName),
		"",
		"Your appointment is booked:",
		"",
		"  " + rec.AppointmentPharmacy,
		"  " + rec.AppointmentAddress,
		"  " + rec.AppointmentDate + " at " + rec.AppointmentTime,
	}
	if rec.AppointmentPhone != "" {
		lines = append(lines, "  "+rec.AppointmentPhone)
	}
	lines = append(lines, "",
		"Confirmation number: "+rec.ConfirmationNumber,
		"",
		"Bring a photo ID. If you need to cancel, call the pharmacy directly.")
	return strings.Join(lines, "\n")
}
