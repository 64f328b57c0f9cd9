package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	appconfig "github.com/slotseeker/slotseeker/internal/config"
	"github.com/slotseeker/slotseeker/internal/confirm"
	"github.com/slotseeker/slotseeker/internal/hunt"
	"github.com/slotseeker/slotseeker/internal/match"
	"github.com/slotseeker/slotseeker/internal/observability/metrics"
	"github.com/slotseeker/slotseeker/internal/notify"
	"github.com/slotseeker/slotseeker/internal/queue"
	"github.com/slotseeker/slotseeker/internal/regioncache"
	"github.com/slotseeker/slotseeker/internal/schedule"
	"github.com/slotseeker/slotseeker/internal/session"
	"github.com/slotseeker/slotseeker/internal/status"
	"github.com/slotseeker/slotseeker/internal/webdriver"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

func main() {
	// Load configuration
	cfg, err := appconfig.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize logger, mirrored to a per-bot file next to the output
	logger, err := logging.NewWithFile(cfg.LogLevel, filepath.Join(cfg.OutputDir, cfg.BotID+".log"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Info("starting slotseeker",
		"env", cfg.Env,
		"bot", cfg.BotID,
		"live", cfg.Live,
		"patients_file", cfg.PatientsFile,
	)
	if !cfg.Live {
		logger.Warn("running in dry-run mode, no appointment will actually be booked")
	}

	recorder, err := confirm.New(cfg.OutputDir, cfg.BotID, confirm.WithLogger(logger))
	if err != nil {
		logger.Error("failed to prepare output directory", "error", err)
		os.Exit(1)
	}

	store := queue.New(cfg.PatientsFile,
		queue.WithLockPath(cfg.LockFile),
		queue.WithLogger(logger))
	cache := regioncache.New(cfg.CacheTTL)
	planner := schedule.New(cfg.RestockHour, cfg.RunDays)

	driver := webdriver.NewClient(cfg.WebDriverURL, webdriver.WithLogger(logger))
	booker := hunt.NewPortalBooker(driver, session.Config{
		PortalURL:   cfg.PortalURL,
		BotName:     cfg.BotName(),
		SearchState: cfg.BotState(),
		DayOffset:   cfg.DayOffset,
		Live:        cfg.Live,
		TimeOrder:   match.Policy(cfg.TimeOrder),
		SwapProb:    cfg.SwapProb,
		StepTimeout: cfg.StepTimeout,
	}, recorder, logger)

	var sender notify.EmailSender = notify.NewStubEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	}
	notifier := notify.NewNotifier(sender, cfg.OpsEmail, logger)

	sweepMetrics := metrics.NewSweepMetrics(nil)
	hunter := hunt.New(hunt.Config{
		BotID:    cfg.BotID,
		BotName:  cfg.BotName(),
		SwapProb: cfg.SwapProb,
	}, store, cache, planner, booker,
		hunt.WithRecorder(recorder),
		hunt.WithNotifier(notifier),
		hunt.WithMetrics(sweepMetrics),
		hunt.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		statusSrv := status.NewServer(cfg.StatusAddr, hunter.Snapshot, logger)
		go func() {
			if err := statusSrv.Run(ctx); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
	}

	if err := hunter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("hunt aborted", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down", "bot", cfg.BotID)
}
