package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YusovID/pr-analytics-service/internal/analysis"
	"github.com/YusovID/pr-analytics-service/internal/config"
	"github.com/YusovID/pr-analytics-service/internal/github"
	"github.com/YusovID/pr-analytics-service/internal/llm"
	"github.com/YusovID/pr-analytics-service/internal/repository"
	"github.com/YusovID/pr-analytics-service/internal/repository/memory"
	"github.com/YusovID/pr-analytics-service/internal/repository/postgres"
	"github.com/YusovID/pr-analytics-service/internal/service"
	myhttp "github.com/YusovID/pr-analytics-service/internal/transport/http"
	"github.com/YusovID/pr-analytics-service/internal/worker"
	"github.com/YusovID/pr-analytics-service/pkg/logger/sl"
	"github.com/YusovID/pr-analytics-service/pkg/logger/slogpretty"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.MustLoad()
	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting pr-analytics-service",
		slog.String("env", cfg.Env),
		slog.String("jobs_store", cfg.Jobs.Store),
		slog.String("llm_model", cfg.LLM.Model),
	)

	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer func() {
		if err := db.DB().Close(); err != nil {
			log.Error("db close failed", sl.Err(err))
		}
	}()

	var jobs repository.JobRegistry = memory.NewJobRegistry()
	if cfg.Jobs.Store == config.JobStorePostgres {
		pgJobs := postgres.NewJobRegistry(db.DB(), log)

		stale, err := pgJobs.FailPending(ctx, service.MessageInterrupted)
		if err != nil {
			return fmt.Errorf("failed to close stale jobs: %w", err)
		}

		if stale > 0 {
			log.Warn("pending jobs from a previous run marked failed", slog.Int64("jobs", stale))
		}

		jobs = pgJobs
	}

	prompts, err := analysis.LoadPrompts(cfg.Analysis.PromptsDir)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	llmClient := llm.NewClient(cfg.LLM)
	ghClient := github.NewClient(cfg.GitHub, log)

	pipeline := service.NewPipeline(
		github.NewLocator(cfg.GitHub.Host, log),
		ghClient,
		analysis.NewAnalyzer(llmClient, prompts, cfg.Analysis, cfg.LLM.Retry, log),
		cfg.GitHub.State,
		log,
	)

	pool := worker.NewPool(cfg.Jobs.Workers, log)

	reportService := service.NewReportService(
		log,
		jobs,
		postgres.NewReportRepository(db.DB(), log),
		pipeline,
		analysis.NewAggregator(llmClient, prompts, cfg.Analysis.AggregateRetry, log),
		pool,
	)

	srv := myhttp.NewServer(log, reportService)
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pool.Run(gctx)
	})

	g.Go(func() error {
		log.Info("service started", slog.String("addr", httpServer.Addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening and serving: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("stopping server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down http server: %w", err)
		}

		return nil
	})

	return g.Wait()
}
