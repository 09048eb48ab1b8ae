package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tickvault/internal/catalog"
	"tickvault/internal/logger"
	runshttp "tickvault/internal/transport/http/runs"
	"tickvault/internal/verify"
)

// reindexEvery is how often the serve loop rescans the runs root so runs
// collected by other invocations show up without a manual index call.
const reindexEvery = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the runs catalog and verification jobs over HTTP",
	Long: `Serve exposes the read-only runs API: catalog listings, raw manifests
and ledgers, and asynchronous verification jobs. The catalog is reindexed
periodically while serving. Nothing in a run directory is ever mutated.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logFile, err := setup()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store, err := catalog.Open(cfg.Runs.Root)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Index(ctx)
	if err != nil {
		return err
	}
	logger.Infof("catalog ready: %d runs under %s", n, cfg.Runs.Root)

	svc := verify.NewService(cfg.Runs.Root)
	svc.SetContext(ctx)

	srv, err := runshttp.NewServer(runshttp.Config{
		Addr:   cfg.Server.Listen,
		Root:   cfg.Runs.Root,
		Store:  store,
		Verify: svc,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		return reindexLoop(ctx, store)
	})
	return g.Wait()
}

func reindexLoop(ctx context.Context, store *catalog.Store) error {
	ticker := time.NewTicker(reindexEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := store.Index(ctx); err != nil {
				logger.Warnf("catalog reindex failed: %v", err)
			}
		}
	}
}
