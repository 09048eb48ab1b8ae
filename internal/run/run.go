package run

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tickvault/internal/ledger"
	"tickvault/internal/manifest"
)

// IDLayout renders a UTC instant at second resolution, e.g. 20260102T030405Z.
// Run identities are expected to be unique at that granularity; a collision is
// a caller error, not something to retry.
const IDLayout = "20060102T150405Z"

// NewID derives a run identity from an instant.
func NewID(now time.Time) string {
	return now.UTC().Format(IDLayout)
}

// Dir is the handle to one run directory. Every component receives it
// explicitly instead of rebuilding paths from ambient configuration, so tests
// can point it at a temporary directory.
type Dir struct {
	id   string
	path string
}

func (d *Dir) ID() string   { return d.id }
func (d *Dir) Path() string { return d.path }

func (d *Dir) ManifestPath() string { return filepath.Join(d.path, manifest.Filename) }
func (d *Dir) LedgerPath() string   { return filepath.Join(d.path, ledger.Filename) }

// Join resolves a run-relative artifact name to a filesystem path.
func (d *Dir) Join(name string) string {
	return filepath.Join(d.path, filepath.FromSlash(name))
}

func (d *Dir) LoadManifest() (*manifest.Manifest, error) {
	return manifest.Load(d.ManifestPath())
}

// Create makes a new run under root: generates the identity from the current
// UTC instant, creates the directory (failing on collision, never merging)
// and seeds the initial manifest with empty artifact lists, the given
// parameter blob, the environment fingerprint and the code version.
func Create(root string, params *manifest.Params) (*Dir, error) {
	return createAt(root, time.Now(), params)
}

func createAt(root string, now time.Time, params *manifest.Params) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create runs root %s: %w", root, err)
	}
	id := NewID(now)
	path := filepath.Join(root, id)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("create run %s: %w", id, err)
	}
	d := &Dir{id: id, path: path}

	m := manifest.New(id, now.UTC().Format(time.RFC3339), CodeVersion(), Fingerprint(), params)
	if err := m.Persist(d.ManifestPath()); err != nil {
		return nil, err
	}
	return d, nil
}

// Open resolves an existing run. A missing directory or manifest means the
// run was never properly initialized; no stage may proceed against it.
func Open(root, id string) (*Dir, error) {
	path := filepath.Join(root, id)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("run %s not found under %s: %w", id, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("run %s: %s is not a directory", id, path)
	}
	if _, err := os.Stat(filepath.Join(path, manifest.Filename)); err != nil {
		return nil, fmt.Errorf("run %s has no manifest: %w", id, err)
	}
	return &Dir{id: id, path: path}, nil
}

// List returns the run identities under root, sorted ascending (identities
// are sortable timestamps). Entries without a manifest are skipped.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list runs under %s: %w", root, err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), manifest.Filename)); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}
