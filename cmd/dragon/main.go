// cmd/dragon/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pytrel/dragon/internal/config"
	"github.com/pytrel/dragon/internal/engine"
	"github.com/pytrel/dragon/internal/logging"
	"github.com/pytrel/dragon/internal/metrics"
)

var (
	// Global flags
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dragon",
	Short: "Observe a counterpart through its file contract and record what is seen",
	Long: `dragon reads the counterpart's snapshot artifacts from the read root,
evaluates freshness and risk, and emits heartbeat.json, ledger.jsonl and
(in governor mode) flags.json into the write root.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the poll-evaluate-emit loop until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return execute(cmd.Context(), false)
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run exactly one cycle (for external schedulers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return execute(cmd.Context(), true)
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and print it with defaults applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "dragon.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// --------------------
// Load + validate config
// --------------------

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func execute(ctx context.Context, once bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if once {
		return engine.Run(ctx, cfg.Dragon, log, m, true)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		// the metrics server lives only as long as the loop
		defer stop()
		return engine.Run(runCtx, cfg.Dragon, log, m, false)
	})

	if addr := cfg.Dragon.MetricsAddr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(runCtx, addr, reg, log)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("engine stopped", zap.Error(err))
		return err
	}
	log.Info("engine stopped")
	return nil
}
