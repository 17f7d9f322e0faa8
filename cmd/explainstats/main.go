// Command explainstats asks a text-generation service to explain each
// university's stats and stores the explanation on its programs.
//
//	explainstats                          annotate every university
//	explainstats --fields innovacion      report a subset of metrics
//	explainstats --list [--university X]  print stored explanations
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/doctorados/internal/app/bootstrap"
	programstore "github.com/dalemusser/doctorados/internal/app/store/programs"
	"github.com/dalemusser/doctorados/internal/app/system/annotate"
	"github.com/dalemusser/doctorados/internal/app/system/explain"
	"github.com/dalemusser/doctorados/internal/domain/models"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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

	// Listing never calls the service, so it needs no credential.
	var explainer annotate.Explainer = noExplainer{}
	if !appCfg.List && appCfg.GenerateDescriptions {
		if err := bootstrap.ValidateLLM(appCfg); err != nil {
			return err
		}
		ex, err := bootstrap.NewExplainer(ctx, appCfg, logger)
		if err != nil {
			return err
		}
		explainer = ex
	}

	deps, err := bootstrap.ConnectDB(ctx, appCfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = bootstrap.Shutdown(context.WithoutCancel(ctx), deps, logger) }()
	fmt.Printf("Successfully connected to MongoDB: %s\n", appCfg.MongoDatabase)

	bootstrap.EnsureSchema(ctx, appCfg, deps, logger)

	store := annotate.NewStore(programstore.New(deps.MongoDatabase, appCfg.ProgramsCollection))
	a := annotate.New(store, explainer, os.Stdout, appCfg.Timeouts, logger)

	if appCfg.List {
		explanations, err := a.UniversityExplanations(ctx, appCfg.University)
		if err != nil {
			return err
		}
		annotate.PrintExplanations(os.Stdout, explanations)
		return nil
	}

	summary, err := a.RecalculateFields(ctx, annotate.Options{
		Fields:               appCfg.Fields,
		GenerateDescriptions: appCfg.GenerateDescriptions,
	})
	if err != nil {
		return err
	}
	summary.Print(os.Stdout)
	return nil
}

// noExplainer stands in when descriptions are disabled; it is never called.
type noExplainer struct{}

func (noExplainer) Explain(context.Context, string, models.Stats) explain.Outcome {
	return explain.Outcome{Reason: explain.ReasonTransport}
}
