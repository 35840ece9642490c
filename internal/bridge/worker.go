package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/apqllyqn/lead-disposition/internal/config"
	"github.com/apqllyqn/lead-disposition/internal/storage"
	"github.com/apqllyqn/lead-disposition/internal/waterfall"
)

// Worker polls the intake queue and executes waterfall fills, one job
// per poll cycle. Claims are atomic at the storage layer, so several
// workers can share a queue without double-processing.
type Worker struct {
	store    storage.Store
	engine   *waterfall.Engine
	cfg      *config.Config
	log      *slog.Logger
	interval time.Duration
}

func NewWorker(store storage.Store, engine *waterfall.Engine, cfg *config.Config, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		store:    store,
		engine:   engine,
		cfg:      cfg,
		log:      log,
		interval: interval,
	}
}

// NewLogger builds the worker's logger. When a log file is configured
// output is teed to it with rotation, so long-running deployments keep
// bounded logs.
func NewLogger(cfg *config.Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.BridgeLogFile != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.BridgeLogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

// Run polls until the context is cancelled. Poll cycle failures are
// logged and the loop keeps going.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.store.Ping(ctx); err != nil {
		return err
	}
	w.log.Info("bridge worker started", "poll_interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.pollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error("poll cycle error", "error", err)
		}
		select {
		case <-ctx.Done():
			w.log.Info("bridge worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// pollOnce claims and processes the oldest pending job, if any.
func (w *Worker) pollOnce(ctx context.Context) error {
	job, err := w.store.ClaimPendingJob(ctx)
	if errors.Is(err, storage.ErrNoPendingJobs) {
		return nil
	}
	if err != nil {
		return err
	}

	w.log.Info("processing job", "job_id", job.ID, "client_id", job.ClientID)

	result, err := w.engine.Fill(ctx, BuildWaterfallRequest(job, w.cfg))
	if err != nil {
		w.log.Error("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			return failErr
		}
		return nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return w.store.FailJob(ctx, job.ID, "result serialization failed: "+err.Error())
	}
	if err := w.store.CompleteJob(ctx, job.ID, resultJSON); err != nil {
		return err
	}

	w.log.Info("job completed",
		"job_id", job.ID,
		"assigned", result.TotalAssigned,
		"requested", result.TotalRequested,
		"internal", result.InternalFilled,
		"external", result.ExternalFilled)
	return nil
}
