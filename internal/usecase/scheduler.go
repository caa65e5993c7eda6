package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

// SessionOpener starts or reuses the browser session.
type SessionOpener interface {
	Open(ctx context.Context) (domain.SessionHandle, error)
}

// Analyzer runs one analysis; Pipeline satisfies it.
type Analyzer interface {
	Run(ctx context.Context, productURL string) (domain.Report, error)
}

// Gate serialises analyses across inbound callers.
type Gate interface {
	TryAcquire() bool
	Release()
}

// SchedulerDeps groups the collaborators of the watch-list scheduler.
// Notifier is optional; when set, every run that completes a report publishes a digest.
type SchedulerDeps struct {
	Driver   ports.Scheduler
	Sessions SessionOpener
	Analyzer Analyzer
	Gate     Gate
	Notifier ports.Notifier
	Products []string
	Logger   *slog.Logger
}

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	sessions SessionOpener
	analyzer Analyzer
	gate     Gate
	notifier ports.Notifier
	products []string
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring watch-list analyses.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{
		driver:   deps.Driver,
		sessions: deps.Sessions,
		analyzer: deps.Analyzer,
		gate:     deps.Gate,
		notifier: deps.Notifier,
		products: deps.Products,
		logger:   deps.Logger,
	}
}

// Start registers the watch list with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.analyzer == nil || len(s.products) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		s.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// NextRun reports the next activation after t. The boolean is false without a driver
// or when the driver cannot compute one.
func (s *Scheduler) NextRun(t time.Time) (time.Time, bool) {
	if s.driver == nil {
		return time.Time{}, false
	}
	next, err := s.driver.Next(t)
	if err != nil {
		s.log(slog.LevelWarn, "next scheduled run unknown", "error", err)
		return time.Time{}, false
	}
	return next, true
}

// RunOnce analyses every watched product sequentially, opening a session for each run.
// It returns the reports that completed.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) []domain.Report {
	if s.gate != nil {
		if !s.gate.TryAcquire() {
			s.log(slog.LevelWarn, "scheduled run skipped, analysis in progress", "trigger", trigger)
			return nil
		}
		defer s.gate.Release()
	}

	var reports []domain.Report
	for _, productURL := range s.products {
		if ctx.Err() != nil {
			return reports
		}
		if s.sessions != nil {
			if _, err := s.sessions.Open(ctx); err != nil {
				s.log(slog.LevelError, "scheduled session open failed", "product_url", productURL, "error", err)
				continue
			}
		}
		report, err := s.analyzer.Run(ctx, productURL)
		if err != nil {
			s.log(slog.LevelError, "scheduled analysis failed", "product_url", productURL, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	s.log(slog.LevelInfo, "scheduled run finished", "trigger", trigger, "products", len(s.products), "completed", len(reports))
	s.publish(ctx, trigger, reports)
	return reports
}

func (s *Scheduler) publish(ctx context.Context, trigger time.Time, reports []domain.Report) {
	if s.notifier == nil || len(reports) == 0 {
		return
	}
	if err := s.notifier.PublishSummary(ctx, WatchListDigest(trigger, len(s.products), reports)); err != nil {
		s.log(slog.LevelWarn, "watch list digest not delivered", "trigger", trigger, "error", err)
	}
}

// WatchListDigest renders one message covering a scheduled run.
func WatchListDigest(trigger time.Time, watched int, reports []domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Watch list run %s: %d of %d products analysed", trigger.Format(time.RFC3339), len(reports), watched)
	for _, report := range reports {
		b.WriteString("\n\n")
		b.WriteString(Summary(report))
	}
	return b.String()
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) log(level slog.Level, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Log(context.Background(), level, msg, args...)
	}
}
