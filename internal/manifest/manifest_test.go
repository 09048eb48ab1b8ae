package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func goldenManifest() *Manifest {
	m := New("20260102T030405Z", "2026-01-02T03:04:05Z", "abc1234", Environment{
		OS:       "linux",
		Arch:     "amd64",
		Runtime:  "go1.24.0",
		Hostname: "host01",
		Modules:  []string{"tickvault v0.0.0"},
	}, nil)
	err := m.SetParams("data_collection", struct {
		Symbol string `json:"symbol"`
		Days   int    `json:"days"`
	}{Symbol: "BTCUSDT", Days: 30})
	if err != nil {
		panic(err)
	}
	m.AddData("ohlcv_binance_BTCUSDT_1m.parquet")
	m.AddLog("collect_data.log")
	m.Notes = "golden fixture"
	return m
}

func TestPersistGolden(t *testing.T) {
	data, err := goldenManifest().Encode()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "manifest_persist", data)
}

func TestPersistByteStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Filename)

	m := goldenManifest()
	require.NoError(t, m.Persist(path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, m.Persist(path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// a load/persist cycle must also reproduce the same bytes
	loaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Persist(path))
	third, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestRegistrationIdempotent(t *testing.T) {
	m := New("r", "c", "v", Environment{}, nil)

	assert.True(t, m.AddData("a.parquet"))
	assert.False(t, m.AddData("a.parquet"))
	assert.Equal(t, []string{"a.parquet"}, m.Artifacts.Data)

	assert.True(t, m.AddLog("x.log"))
	assert.True(t, m.AddLog("y.log"))
	assert.False(t, m.AddLog("x.log"))
	assert.Equal(t, []string{"x.log", "y.log"}, m.Artifacts.Logs)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), Filename))
	assert.Error(t, err)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParamsOwnership(t *testing.T) {
	m := goldenManifest()
	require.NoError(t, m.SetParams("data_summary", map[string]any{"rows": 10}))
	// overwriting an existing stage key keeps its position
	require.NoError(t, m.SetParams("data_collection", map[string]any{"days": 7}))

	assert.Equal(t, []string{"data_collection", "data_summary"}, m.Parameters.Keys())

	data, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, int64(7), gjson.GetBytes(data, "parameters.data_collection.days").Int())
	assert.Equal(t, int64(10), gjson.GetBytes(data, "parameters.data_summary.rows").Int())
}

func TestAllArtifactsOrder(t *testing.T) {
	m := New("r", "c", "v", Environment{}, nil)
	m.AddTable("tables/data_summary.md")
	m.AddData("d.parquet")
	m.AddFigure("figures/01_close.png")
	m.AddLog("collect_data.log")

	assert.Equal(t, []string{
		"d.parquet",
		"figures/01_close.png",
		"collect_data.log",
		"tables/data_summary.md",
	}, m.AllArtifacts())
}

func TestSchemaValidation(t *testing.T) {
	data, err := goldenManifest().Encode()
	require.NoError(t, err)
	assert.NoError(t, ValidateBytes(data))

	assert.Error(t, ValidateBytes([]byte(`{"created_utc":"x"}`)))
	assert.Error(t, ValidateBytes([]byte(`[]`)))
	assert.Error(t, ValidateBytes([]byte(`{`)))
}
