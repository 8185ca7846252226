package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/extruline/report-bot/internal/config"
	"github.com/extruline/report-bot/internal/domain/flow"
	"github.com/extruline/report-bot/internal/domain/report"
	"github.com/extruline/report-bot/internal/infrastructure/crontab"
	"github.com/extruline/report-bot/internal/infrastructure/dedup"
	"github.com/extruline/report-bot/internal/infrastructure/logger"
	"github.com/extruline/report-bot/internal/infrastructure/observability"
	repo "github.com/extruline/report-bot/internal/infrastructure/repository/conversation"
	"github.com/extruline/report-bot/internal/infrastructure/sheets"
	"github.com/extruline/report-bot/internal/infrastructure/telegram"
	"github.com/extruline/report-bot/internal/interfaces/httpserver"
	"github.com/extruline/report-bot/internal/interfaces/httpserver/handlers"
)

// Application bundles the long-running parts of the service.
type Application struct {
	httpServer *httpserver.HttpServer
	reaper     *flow.Reaper
	cron       *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, reaper *flow.Reaper, cron *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		reaper:     reaper,
		cron:       cron,
		log:        log,
	}
}

// Start runs the HTTP listener, the idle reaper and the cron jobs until
// the context is cancelled.
func (a *Application) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.httpServer.Run(ctx) })
	g.Go(func() error { return a.reaper.Run(ctx) })
	g.Go(func() error { return a.cron.Run(ctx) })
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	tokens, err := sheets.NewTokenSource(cfg.GoogleCredsPath, cfg.SheetsTokenURL)
	if err != nil {
		log.Fatal().Err(err).Msg("load service account credentials")
	}
	sink := sheets.NewClient(cfg.SheetsAPIBase, cfg.SpreadsheetID, tokens, log)

	// Degraded persistence must not keep the bot from answering; the
	// daily cron job re-asserts the schema once the backend recovers.
	if err := sink.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("sheet schema assert failed on startup")
	}

	refs := report.NewReferenceService(sink, cfg.ReferenceCacheTTL, log)
	messenger := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIBase, log)
	store := repo.NewInMemoryStore()

	engine := flow.NewEngine(store, sink, refs, messenger, flow.Config{
		IdleTimeout:          cfg.IdleTimeout,
		PrevPeriodOffsetDays: cfg.PrevPeriodOffsetDays,
	}, log)
	reaper := flow.NewReaper(engine, cfg.SweepInterval, log)
	cron := crontab.New(refs, sink, log)

	seen, err := dedup.New(cfg.DedupCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize dedup cache")
	}

	webhookHandler := handlers.NewWebhookHandler(engine, seen, cfg.TelegramToken, cfg.WebhookSecret, log)
	httpServer := httpserver.New(cfg, log, handlers.NewProvider(webhookHandler))

	app := NewApplication(httpServer, reaper, cron, log)
	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
