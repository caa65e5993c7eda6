package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	httpadapter "ReviewScanner/internal/adapters/http"
	"ReviewScanner/internal/config"
	"ReviewScanner/internal/infrastructure/browser"
	"ReviewScanner/internal/infrastructure/classifier"
	"ReviewScanner/internal/infrastructure/export"
	"ReviewScanner/internal/infrastructure/ml"
	natsinfra "ReviewScanner/internal/infrastructure/nats"
	"ReviewScanner/internal/infrastructure/parser"
	"ReviewScanner/internal/infrastructure/report"
	"ReviewScanner/internal/infrastructure/scheduler"
	"ReviewScanner/internal/infrastructure/storage"
	"ReviewScanner/internal/infrastructure/telegram"
	"ReviewScanner/internal/logging"
	"ReviewScanner/internal/marketplace"
	"ReviewScanner/internal/observability/metrics"
	"ReviewScanner/internal/observability/tracing"
	"ReviewScanner/internal/ports"
	"ReviewScanner/internal/session"
	"ReviewScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	metrics    *metrics.Metrics
	sessions   *session.Manager
	classifier ports.Classifier
	pipeline   *usecase.Pipeline
	gate       *usecase.RunGate
	scheduler  *usecase.Scheduler
	router     *httpadapter.Router

	db              *sql.DB
	publisher       *natsinfra.Publisher
	notifier        *telegram.Notifier
	shutdownTracing tracing.Shutdown
}

// New builds every adapter from cfg. Failing to load the classifier is fatal.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger, gate: usecase.NewRunGate()}

	shutdown, err := tracing.Setup(ctx, cfg.Tracing, baseLogger.With("component", "tracing"))
	if err != nil {
		baseLogger.Warn("tracing disabled", "error", err)
	}
	a.shutdownTracing = shutdown

	a.metrics = metrics.New(serviceName(cfg))

	a.classifier, err = NewClassifier(ctx, cfg.Classifier, baseLogger.With("component", "classifier"))
	if err != nil {
		a.Close()
		return nil, err
	}

	sites, err := marketplace.FromConfig(cfg.Marketplaces, cfg.Marketplace)
	if err != nil {
		a.Close()
		return nil, err
	}
	home, err := sites.Default()
	if err != nil {
		a.Close()
		return nil, err
	}

	repository, err := a.openRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		a.notifier = telegram.NewNotifier(tg)
	}

	a.sessions = session.NewManager(
		browser.NewLauncher(cfg.Browser, baseLogger.With("component", "browser")),
		session.Options{
			HomeURL:        home.HomeURL(),
			NavigateSettle: cfg.Harvest.NavigateSettle.Std(),
			ScrollSettle:   cfg.Harvest.ScrollSettle.Std(),
			Logger:         baseLogger.With("component", "session"),
			Metrics:        a.metrics,
		},
	)

	var stop usecase.StopPolicy
	if cfg.Harvest.StopAfterEmptyPages > 0 {
		stop = usecase.StopAfterEmptyPages(cfg.Harvest.StopAfterEmptyPages)
	}
	harvester := usecase.NewHarvester(usecase.HarvesterDeps{
		Browser:    a.sessions,
		Parser:     parser.NewReviewPage(),
		MaxPages:   cfg.Harvest.MaxPages,
		PagePause:  cfg.Harvest.PagePause.Std(),
		StopPolicy: stop,
		Metrics:    a.metrics,
		Logger:     baseLogger.With("component", "harvester"),
	})

	var reports ports.ReportRepository
	if repository != nil {
		reports = repository
	}
	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Session:    a.sessions,
		Sites:      sites,
		Harvester:  harvester,
		Classifier: a.classifier,
		Repository: reports,
		Sinks:      a.buildSinks(),
		Metrics:    a.metrics,
		Logger:     baseLogger.With("component", "pipeline"),
		KeepWarm:   cfg.Session.KeepWarm,
		MaxPages:   cfg.Harvest.MaxPages,
	})

	if cfg.Scheduler.Enabled() {
		driver := scheduler.NewCronScheduler(
			cfg.Scheduler.CronExpression,
			cfg.Scheduler.Location(),
			baseLogger.With("component", "cron"),
		)
		deps := usecase.SchedulerDeps{
			Driver:   driver,
			Sessions: a.sessions,
			Analyzer: a.pipeline,
			Gate:     a.gate,
			Products: cfg.Scheduler.Products,
			Logger:   baseLogger.With("component", "scheduler"),
		}
		if a.notifier != nil {
			deps.Notifier = a.notifier
		}
		a.scheduler = usecase.NewScheduler(deps)
	}

	a.router = httpadapter.NewRouter(a.sessions, a.pipeline, reports, a.gate, httpadapter.Options{
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
		Logger:     baseLogger.With("component", "http"),
		Metrics:    a.metrics.Handler(),
		Instrument: a.metrics.Middleware,
	})

	return a, nil
}

// NewClassifier loads the configured backend. The remote backend must pass its health check.
func NewClassifier(ctx context.Context, cfg config.ClassifierConfig, logger *slog.Logger) (ports.Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		linear, err := classifier.LoadLinear(cfg.ArtifactsDir, cfg.Threshold)
		if err != nil {
			return nil, err
		}
		logger.Info("classifier loaded", "backend", "local", "dir", cfg.ArtifactsDir)
		return linear, nil
	case "remote", "http":
		client := ml.NewClient(cfg, logger)
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		logger.Info("classifier loaded", "backend", "remote", "endpoint", cfg.Endpoint)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

func (a *Application) openRepository(ctx context.Context) (*storage.ReportRepository, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("report history disabled, no database dsn")
		return nil, nil
	}

	db, dialect, err := storage.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db

	repository := storage.NewReportRepository(db, dialect)
	if err := repository.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repository, nil
}

func (a *Application) buildSinks() []ports.ReportSink {
	var sinks []ports.ReportSink
	if a.cfg.Reports.Workbook {
		sinks = append(sinks, report.NewWorkbook(a.cfg.Reports.OutputDir))
	}
	if a.cfg.Reports.CSV {
		sinks = append(sinks, export.NewCSVWriter(a.cfg.Reports.OutputDir))
	}
	if a.cfg.NATS.URL != "" {
		publisher, err := natsinfra.Connect(a.cfg.NATS.URL, a.cfg.NATS.Subject, natsinfra.Options{
			Logger: a.logger.With("component", "nats"),
		})
		if err != nil {
			a.logger.Warn("report events disabled", "error", err)
		} else {
			a.publisher = publisher
			sinks = append(sinks, publisher)
		}
	}
	if a.notifier != nil {
		sinks = append(sinks, a.notifier)
	}
	return sinks
}

// Sessions exposes the browser session manager.
func (a *Application) Sessions() *session.Manager { return a.sessions }

// Pipeline exposes the analysis use case.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Handler returns the HTTP API.
func (a *Application) Handler() http.Handler { return a.router.Handler() }

// Run serves the HTTP API and the optional watch-list scheduler until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		args := []any{"cron", a.cfg.Scheduler.CronExpression, "products", len(a.cfg.Scheduler.Products)}
		if next, ok := a.scheduler.NextRun(time.Now()); ok {
			args = append(args, "next_run", next)
		}
		a.logger.Info("scheduler started", args...)
	}

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := a.cfg.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop failed", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases the browser, connections and exporters. Safe on a partially built Application.
func (a *Application) Close() {
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Warn("session close failed", "error", err)
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("database close failed", "error", err)
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
}

func serviceName(cfg config.Config) string {
	if cfg.Tracing.ServiceName != "" {
		return cfg.Tracing.ServiceName
	}
	return "reviewscanner"
}
