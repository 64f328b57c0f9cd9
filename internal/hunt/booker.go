package hunt

import (
	"context"
	"fmt"

	"github.com/slotseeker/slotseeker/internal/confirm"
	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/session"
	"github.com/slotseeker/slotseeker/internal/webdriver"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// PortalBooker opens a fresh browser session per attempt and drives the
// portal wizard through it. Sessions are never reused: the portal's chat
// transcript only grows, so a stale session poisons element counting.
type PortalBooker struct {
	client   *webdriver.Client
	cfg      session.Config
	recorder *confirm.Recorder
	logger   *logging.Logger
}

// NewPortalBooker creates a booker over a remote browser endpoint.
// recorder may be nil to disable audit output.
func NewPortalBooker(client *webdriver.Client, cfg session.Config, recorder *confirm.Recorder, logger *logging.Logger) *PortalBooker {
	if logger == nil {
		logger = logging.Default()
	}
	return &PortalBooker{client: client, cfg: cfg, recorder: recorder, logger: logger}
}

// Attempt runs one search-and-book pass for the patient.
func (b *PortalBooker) Attempt(ctx context.Context, p patient.Patient) (*session.Confirmation, error) {
	doc, err := b.client.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("hunt: open browser session: %w", err)
	}

	driver := session.New(doc, b.cfg, b.recorder, b.logger)
	defer driver.Close(ctx)

	claim, err := driver.FindSlot(ctx, p)
	if err != nil {
		return nil, err
	}
	return driver.Book(ctx, p, claim)
}
