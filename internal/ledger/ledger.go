package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Filename is the ledger's name inside a run directory.
const Filename = "checksums.sha256"

// hashChunkSize bounds per-file memory while hashing: large data files are
// streamed, never read whole.
const hashChunkSize = 1 << 20

// verifyWorkers caps concurrent re-hashing during verification.
const verifyWorkers = 4

// Entry is one ledger line: a content digest and the path it was recorded
// under, relative to the ledger's directory (absolute only for files outside
// that directory).
type Entry struct {
	Digest string
	Path   string
}

// Write hashes every input path in order and overwrites ledgerPath with one
// `<digest><two spaces><relative path>` line per file. Paths that cannot be
// made relative to the ledger's directory are recorded absolute; that keeps
// the ledger valid but such files are not portable with the run directory.
// An empty input list produces a valid, empty ledger. The returned map is
// keyed by the input paths as given.
func Write(paths []string, ledgerPath string) (map[string]string, error) {
	absLedger, err := filepath.Abs(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path %s: %w", ledgerPath, err)
	}
	base := filepath.Dir(absLedger)

	digests := make(map[string]string, len(paths))
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		digest, err := HashFile(p)
		if err != nil {
			return nil, err
		}
		digests[p] = digest
		lines = append(lines, digest+"  "+recordPath(base, p))
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(absLedger, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write ledger %s: %w", ledgerPath, err)
	}
	return digests, nil
}

func recordPath(base, p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// HashFile streams the file through SHA-256 in fixed-size chunks and returns
// the lowercase hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Parse reads a ledger file back into entries, in file order.
func Parse(ledgerPath string) ([]Entry, error) {
	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", ledgerPath, err)
	}
	var entries []Entry
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		digest, path, ok := strings.Cut(line, "  ")
		if !ok || len(digest) != sha256.Size*2 || path == "" {
			return nil, fmt.Errorf("ledger %s: malformed line %d", ledgerPath, i+1)
		}
		entries = append(entries, Entry{Digest: digest, Path: path})
	}
	return entries, nil
}

// File states reported by Verify.
const (
	StateOK       = "ok"
	StateMismatch = "mismatch"
	StateMissing  = "missing"
)

// FileResult is the verification outcome for one ledger entry.
type FileResult struct {
	Path     string `json:"path"`
	Recorded string `json:"recorded"`
	Computed string `json:"computed,omitempty"`
	State    string `json:"state"`
}

// Report is a full verification pass over one ledger.
type Report struct {
	LedgerPath string       `json:"ledger_path"`
	Results    []FileResult `json:"results"`
	OK         bool         `json:"ok"`
}

// Verify re-hashes every entry and reports per-file ok/mismatch/missing in
// ledger order. Bit-level mutations and deleted files are detected; files the
// ledger never tracked are out of contract and not reported.
func Verify(ctx context.Context, ledgerPath string) (*Report, error) {
	entries, err := Parse(ledgerPath)
	if err != nil {
		return nil, err
	}
	absLedger, err := filepath.Abs(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path %s: %w", ledgerPath, err)
	}
	base := filepath.Dir(absLedger)

	report := &Report{LedgerPath: ledgerPath, Results: make([]FileResult, len(entries))}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(verifyWorkers)
	for i, entry := range entries {
		g.Go(func() error {
			res := FileResult{Path: entry.Path, Recorded: entry.Digest, State: StateOK}
			target := filepath.FromSlash(entry.Path)
			if !filepath.IsAbs(target) {
				target = filepath.Join(base, target)
			}
			digest, err := HashFile(target)
			switch {
			case errors.Is(err, os.ErrNotExist):
				res.State = StateMissing
			case err != nil:
				return err
			default:
				res.Computed = digest
				if digest != entry.Digest {
					res.State = StateMismatch
				}
			}
			report.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.OK = true
	for _, res := range report.Results {
		if res.State != StateOK {
			report.OK = false
			break
		}
	}
	return report, nil
}
