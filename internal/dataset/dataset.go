// Package dataset persists bar and tick series as parquet files inside a run
// directory. Readers fail loudly on missing or malformed files so a stage
// never works from a silently-empty series.
package dataset

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"tickvault/internal/market"
)

func WriteBars(path string, bars []market.Bar) error {
	if err := parquet.WriteFile(path, bars); err != nil {
		return fmt.Errorf("write bars %s: %w", path, err)
	}
	return nil
}

func ReadBars(path string) ([]market.Bar, error) {
	bars, err := parquet.ReadFile[market.Bar](path)
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", path, err)
	}
	return bars, nil
}

func WriteTicks(path string, ticks []market.Tick) error {
	if err := parquet.WriteFile(path, ticks); err != nil {
		return fmt.Errorf("write ticks %s: %w", path, err)
	}
	return nil
}

func ReadTicks(path string) ([]market.Tick, error) {
	ticks, err := parquet.ReadFile[market.Tick](path)
	if err != nil {
		return nil, fmt.Errorf("read ticks %s: %w", path, err)
	}
	return ticks, nil
}
