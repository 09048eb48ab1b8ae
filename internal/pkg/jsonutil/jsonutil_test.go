package jsonutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Query string   `json:"query"`
	Tags  []string `json:"tags"`
}

func TestMarshalStable(t *testing.T) {
	v := sample{Name: "a", Query: "x<y&z", Tags: []string{}}
	out, err := MarshalStable(v)
	require.NoError(t, err)

	want := "{\n  \"name\": \"a\",\n  \"query\": \"x<y&z\",\n  \"tags\": []\n}\n"
	assert.Equal(t, want, string(out))
}

func TestMarshalStableDeterministic(t *testing.T) {
	v := sample{Name: "a", Tags: []string{"t1", "t2"}}
	first, err := MarshalStable(v)
	require.NoError(t, err)
	second, err := MarshalStable(v)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteStableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteStableFile(path, sample{Name: "a", Tags: []string{}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected, err := MarshalStable(sample{Name: "a", Tags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, expected, data)
}
