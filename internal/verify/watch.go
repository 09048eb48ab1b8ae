package verify

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"tickvault/internal/logger"
	"tickvault/internal/run"
)

const watchDebounce = 300 * time.Millisecond

// Watch verifies the run once, then keeps re-verifying whenever files inside
// the run directory change, until ctx is cancelled. Every completed pass is
// handed to onReport. Watching is advisory and read-only: it detects drift,
// it does not block it.
func Watch(ctx context.Context, d *run.Dir, onReport func(*Report)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("verify watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(d.Path()); err != nil {
		return fmt.Errorf("verify watch: %w", err)
	}
	for _, sub := range []string{"figures", "tables"} {
		p := d.Join(sub)
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			if err := w.Add(p); err != nil {
				return fmt.Errorf("verify watch: %w", err)
			}
		}
	}

	runPass := func() {
		rep, err := Run(ctx, d)
		if err != nil {
			logger.Warnf("verify watch: run %s: %v", d.ID(), err)
			return
		}
		if onReport != nil {
			onReport(rep)
		}
	}
	runPass()

	// A stale debounce tick costs one extra pass, nothing more.
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Subdirectories created after the watch started (a stage
			// running concurrently) get watched too.
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						logger.Warnf("verify watch: add %s: %v", ev.Name, err)
					}
				}
			}
			debounce.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("verify watch: %v", err)
		case <-debounce.C:
			runPass()
		}
	}
}
