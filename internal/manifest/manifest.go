package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"tickvault/internal/pkg/jsonutil"
)

// Filename is the manifest's name inside a run directory.
const Filename = "manifest.json"

// Artifact list names, used wherever a caller selects a list by kind.
const (
	KindData    = "data"
	KindFigures = "figures"
	KindLogs    = "logs"
	KindTables  = "tables"
)

// Manifest is the single source of truth for what a run produced. Files not
// registered here are outside the provenance contract even when present on
// disk. Field order below fixes the serialization order.
type Manifest struct {
	RunID       string      `json:"run_id"`
	CreatedUTC  string      `json:"created_utc"`
	CodeVersion string      `json:"code_version"`
	Environment Environment `json:"environment"`
	Parameters  *Params     `json:"parameters"`
	Artifacts   Artifacts   `json:"artifacts"`
	Notes       string      `json:"notes"`
}

// Environment is the host fingerprint captured once at run creation.
type Environment struct {
	OS       string   `json:"os"`
	Arch     string   `json:"arch"`
	Runtime  string   `json:"runtime"`
	Hostname string   `json:"hostname"`
	Modules  []string `json:"modules"`
}

// Artifacts holds the run's artifact inventory. Every entry is a path
// relative to the run directory; lists are append-only and duplicate-free.
type Artifacts struct {
	Data    []string `json:"data"`
	Figures []string `json:"figures"`
	Logs    []string `json:"logs"`
	Tables  []string `json:"tables"`
}

// New seeds a manifest for a freshly created run.
func New(runID, createdUTC, codeVersion string, env Environment, params *Params) *Manifest {
	if params == nil {
		params = NewParams()
	}
	return &Manifest{
		RunID:       runID,
		CreatedUTC:  createdUTC,
		CodeVersion: codeVersion,
		Environment: env,
		Parameters:  params,
		Artifacts: Artifacts{
			Data:    []string{},
			Figures: []string{},
			Logs:    []string{},
			Tables:  []string{},
		},
	}
}

// Load reads and decodes a manifest file. A missing or undecodable manifest
// means the run was never properly initialized, so the error is fatal for the
// calling stage.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if m.RunID == "" {
		return nil, fmt.Errorf("decode manifest %s: missing run_id", path)
	}
	m.normalize()
	return &m, nil
}

// Persist overwrites path with the encoded manifest. Encoding is byte-stable:
// two persists of identical content produce identical files (fixed field
// order, insertion-ordered parameters, 2-space indent, no HTML escaping,
// trailing newline).
func (m *Manifest) Persist(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist manifest %s: %w", path, err)
	}
	return nil
}

// Encode returns the exact bytes Persist writes.
func (m *Manifest) Encode() ([]byte, error) {
	m.normalize()
	data, err := jsonutil.MarshalStable(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// AddData registers a data artifact. Re-registering an existing name is a
// no-op; the return reports whether the entry is new.
func (m *Manifest) AddData(name string) bool {
	return appendUnique(&m.Artifacts.Data, name)
}

func (m *Manifest) AddFigure(name string) bool {
	return appendUnique(&m.Artifacts.Figures, name)
}

func (m *Manifest) AddLog(name string) bool {
	return appendUnique(&m.Artifacts.Logs, name)
}

func (m *Manifest) AddTable(name string) bool {
	return appendUnique(&m.Artifacts.Tables, name)
}

// SetParams records the configuration a stage actually used. Each stage owns
// exactly one key and never touches the others.
func (m *Manifest) SetParams(stage string, value any) error {
	if m.Parameters == nil {
		m.Parameters = NewParams()
	}
	return m.Parameters.Set(stage, value)
}

// AllArtifacts returns the complete inventory in manifest order:
// data, figures, logs, tables.
func (m *Manifest) AllArtifacts() []string {
	out := make([]string, 0, len(m.Artifacts.Data)+len(m.Artifacts.Figures)+len(m.Artifacts.Logs)+len(m.Artifacts.Tables))
	out = append(out, m.Artifacts.Data...)
	out = append(out, m.Artifacts.Figures...)
	out = append(out, m.Artifacts.Logs...)
	out = append(out, m.Artifacts.Tables...)
	return out
}

func (m *Manifest) normalize() {
	if m.Parameters == nil {
		m.Parameters = NewParams()
	}
	if m.Artifacts.Data == nil {
		m.Artifacts.Data = []string{}
	}
	if m.Artifacts.Figures == nil {
		m.Artifacts.Figures = []string{}
	}
	if m.Artifacts.Logs == nil {
		m.Artifacts.Logs = []string{}
	}
	if m.Artifacts.Tables == nil {
		m.Artifacts.Tables = []string{}
	}
	if m.Environment.Modules == nil {
		m.Environment.Modules = []string{}
	}
}

func appendUnique(list *[]string, name string) bool {
	for _, existing := range *list {
		if existing == name {
			return false
		}
	}
	*list = append(*list, name)
	return true
}
