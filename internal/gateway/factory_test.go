package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tvcfg "tickvault/internal/config"
)

func TestNewSourceFromConfig(t *testing.T) {
	cfg := &tvcfg.Config{}
	cfg.Source.Name = "binance"

	src, err := NewSourceFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "binance", src.Name())
}

func TestNewSourceFromConfigDefaultsToBinance(t *testing.T) {
	src, err := NewSourceFromConfig(&tvcfg.Config{})
	require.NoError(t, err)
	assert.Equal(t, "binance", src.Name())
}

func TestNewSourceFromConfigUnknown(t *testing.T) {
	cfg := &tvcfg.Config{}
	cfg.Source.Name = "kraken"

	_, err := NewSourceFromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported market source")
}

func TestNewSourceFromConfigNil(t *testing.T) {
	_, err := NewSourceFromConfig(nil)
	require.Error(t, err)
}
