// Package cmd wires the tickvault subcommands. Every stage is its own
// invocation against a run directory; the config file supplies the knobs the
// stages record into the manifest.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tickvault/internal/config"
	"tickvault/internal/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tickvault",
	Short: "Reproducible market-data runs: collect, summarize, chart, verify",
	Long: `tickvault collects exchange market data into self-describing run
directories. Every run carries a manifest (code version, environment,
parameters) and a SHA-256 ledger over its artifacts, so any result can be
traced back to exactly what produced it and checked for tampering.

Typical flow:
  tickvault init --note "baseline window"
  tickvault collect  --run 20260116T113045Z
  tickvault summarize --run 20260116T113045Z
  tickvault figures   --run 20260116T113045Z
  tickvault verify    --run 20260116T113045Z`,
	SilenceUsage: true,
}

// Execute runs the CLI. Errors are reported by cobra; the caller only decides
// the exit code.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to the YAML config file")
}

func defaultConfigPath() string {
	if p := os.Getenv("TICKVAULT_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// setup loads the config and routes logging per its app block. The returned
// file, when non nil, must be closed by the caller.
func setup() (*config.Config, *os.File, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	return cfg, logFile, nil
}

// setupLogOutput mirrors log lines to the configured file on top of stdout.
// An empty path keeps stdout only.
func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

// signalContext derives a context cancelled by SIGINT or SIGTERM, so a
// long-running stage stops between pages instead of mid-write.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			logger.Warnf("signal received, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
