package run

import (
	"fmt"
	"os"
	"time"
)

// StageLog is a stage's plain-text append log inside the run directory. It is
// itself an artifact: the stage registers it under artifacts.logs and the
// ledger hashes it.
type StageLog struct {
	name string
	f    *os.File
	err  error
}

// OpenStageLog opens (appending) <stage>.log inside the run directory.
func OpenStageLog(d *Dir, stage string) (*StageLog, error) {
	name := stage + ".log"
	f, err := os.OpenFile(d.Join(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open stage log %s: %w", name, err)
	}
	return &StageLog{name: name, f: f}, nil
}

// Name is the run-relative filename, e.g. "collect_data.log".
func (l *StageLog) Name() string { return l.name }

// Logf appends one `[ISO-8601Z] message` line. Write errors stick and are
// reported by Close.
func (l *StageLog) Logf(format string, v ...any) {
	if l.err != nil {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := fmt.Fprintf(l.f, "[%s] %s\n", ts, fmt.Sprintf(format, v...)); err != nil {
		l.err = err
	}
}

func (l *StageLog) Close() error {
	cerr := l.f.Close()
	if l.err != nil {
		return fmt.Errorf("stage log %s: %w", l.name, l.err)
	}
	if cerr != nil {
		return fmt.Errorf("close stage log %s: %w", l.name, cerr)
	}
	return nil
}
