// Command initcriteria gives every program the default criteria block and
// verifies that the collection has converged.
//
//	initcriteria                 initialize, then verify
//	initcriteria --verify        verify only
//	initcriteria --seed_catalog  also write the default criteria catalog
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalemusser/doctorados/internal/app/bootstrap"
	"github.com/dalemusser/doctorados/internal/app/resources"
	criteriaconfigstore "github.com/dalemusser/doctorados/internal/app/store/criteriaconfig"
	programstore "github.com/dalemusser/doctorados/internal/app/store/programs"
	"github.com/dalemusser/doctorados/internal/app/system/criteriainit"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing criteria: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	bootLog, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	coreCfg, appCfg, err := bootstrap.LoadConfig(bootLog)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := bootstrap.NewLogger(coreCfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := bootstrap.ValidateConfig(appCfg, logger); err != nil {
		return err
	}

	fmt.Println("Starting criteria initialization...")
	fmt.Printf("Connecting to MongoDB database %q\n", appCfg.MongoDatabase)
	deps, err := bootstrap.ConnectDB(ctx, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = bootstrap.Shutdown(context.WithoutCancel(ctx), deps, logger)
		fmt.Println("MongoDB connection closed")
	}()
	fmt.Println("Successfully connected to MongoDB")

	bootstrap.EnsureSchema(ctx, appCfg, deps, logger)

	in := criteriainit.New(
		programstore.New(deps.MongoDatabase, appCfg.ProgramsCollection),
		os.Stdout, appCfg.Timeouts, logger)

	if appCfg.SeedCatalog && !appCfg.Verify {
		cat, err := resources.LoadCriteriaCatalog()
		if err != nil {
			return err
		}
		catalogs := criteriaconfigstore.New(deps.MongoDatabase, appCfg.CriteriaCollection)
		if _, err := in.SeedCatalog(ctx, catalogs, cat, appCfg.OverwriteCatalog, time.Now()); err != nil {
			return err
		}
	}

	cov, err := in.Run(ctx, appCfg.Verify)
	if err != nil {
		return err
	}

	logger.Info("criteria run finished",
		zap.Bool("verify_only", appCfg.Verify),
		zap.Int64("complete", cov.Complete),
		zap.Int64("total", cov.Total))
	fmt.Println("Done.")
	return nil
}
