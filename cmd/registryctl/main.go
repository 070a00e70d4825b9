package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/bootstrap"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "registryctl",
	Short:         "Batch tooling for the course registry",
	Long:          "registryctl migrates the schema, imports catalog exports, seeds students and prerequisites, and runs enrollment batches.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(migrateCmd(), importCmd(), seedCmd(), enrollCmd(), tokenCmd())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

// runtime bundles what every database-backed subcommand needs.
type runtime struct {
	cfg *config.Config
	log *zap.Logger
	app *bootstrap.Container
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, logr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: logr, app: app}, nil
}

func (r *runtime) close() {
	r.app.Close()
	_ = r.log.Sync()
}
