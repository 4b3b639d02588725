package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/evo-uds/wafmon/internal/activity"
	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/config"
	"github.com/evo-uds/wafmon/internal/db"
	"github.com/evo-uds/wafmon/internal/logging"
	"github.com/evo-uds/wafmon/internal/metrics"
	"github.com/evo-uds/wafmon/internal/workflow"
)

const taskQueue = "wafmon-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, taskQueue, worker.Options{})

	// Register activities
	coreDBActivities := activity.NewCoreDB(corePool)
	w.RegisterActivity(coreDBActivities)

	resolver := awsx.NewSTSResolver()
	pipelineActivities := activity.NewPipeline(resolver, awsx.NewClientSet, cfg, logger)
	w.RegisterActivity(pipelineActivities)

	// Register workflows
	w.RegisterWorkflow(workflow.TenantProvisionWorkflow)
	w.RegisterWorkflow(workflow.EnableWafMonitoringWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}
