package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	rulpm "github.com/lucianolorenti/rul-pm"
	"github.com/lucianolorenti/rul-pm/internal/adapters/observability"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "prepare":
		err = prepareCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "list":
		err = listCommand(os.Args[2:])
	case "get":
		err = getCommand(os.Args[2:])
	case "durations":
		err = durationsCommand(os.Args[2:])
	case "export":
		err = exportCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("rulpm %s: %v", cmd, err)
	}
}

// env carries what every dataset-backed command needs.
type env struct {
	cfg    *rulpm.Config
	logger *zap.Logger
	obs    *observability.PromObs
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "Path to YAML configuration (defaults plus RULPM_* env when empty)")
}

func setup(cfgPath string) (*env, error) {
	cfg, err := rulpm.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		obs:    observability.NewPromObs(logger, prometheus.DefaultRegisterer),
	}, nil
}

func (e *env) open(ctx context.Context, opts ...rulpm.DatasetOption) (*rulpm.Dataset, error) {
	bars := newProgressBars(os.Stderr)
	defer bars.finish()

	opts = append([]rulpm.DatasetOption{
		rulpm.WithObservability(e.obs),
		rulpm.WithProgress(bars.report),
	}, opts...)
	return rulpm.NewDataset(ctx, e.cfg, opts...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printUsage() {
	fmt.Printf(`rulpm - PHM 2018 run-to-failure dataset tooling

Usage:
  rulpm <command> [flags]

Commands:
  prepare    Download, extract and segment the dataset (no-op when already prepared)
  validate   Load and validate a config file
  list       Print the valid lives after filtering
  get        Write one filtered life as CSV, optionally imputed
  durations  Summarize life durations, draw histogram/boxplot, fit a Weibull
  export     Write every valid life into TimescaleDB
  serve      Serve /metrics, /healthz and the read-only lives API
  stats      Poll a running server's metrics endpoint

Examples:
  rulpm prepare -config ./data/config.yaml
  rulpm list -json
  rulpm get -index 3 -impute median -window 10 -out life3.csv
  rulpm durations -hist durations.png -box durations.svg -weibull
  rulpm export -config ./data/config.yaml
  rulpm serve -addr :9100
`)
}
