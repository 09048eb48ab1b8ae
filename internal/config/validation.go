package config

import (
	"fmt"
	"strings"

	"tickvault/internal/market"
)

func validate(c *Config) error {
	if strings.TrimSpace(c.Runs.Root) == "" {
		return fmt.Errorf("runs.root cannot be empty")
	}
	if err := c.Source.validate(); err != nil {
		return err
	}
	if err := c.Collect.validate(); err != nil {
		return err
	}
	if err := c.Figures.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	return nil
}

func (s *SourceConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Name)) {
	case "", "binance":
	default:
		return fmt.Errorf("unsupported source.name: %s", s.Name)
	}
	if strings.TrimSpace(s.Binance.BaseURL) == "" {
		return fmt.Errorf("source.binance.base_url cannot be empty")
	}
	if s.Binance.Proxy.Enabled && strings.TrimSpace(s.Binance.Proxy.URL) == "" {
		return fmt.Errorf("source.binance.proxy enabled but url is empty")
	}
	return nil
}

func (c *CollectConfig) validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("collect.symbol cannot be empty")
	}
	if _, err := market.ParseTimeframe(c.Timeframe); err != nil {
		return fmt.Errorf("collect.timeframe: %w", err)
	}
	if c.Days <= 0 {
		return fmt.Errorf("collect.days must be > 0")
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		return fmt.Errorf("collect.page_size must be in [1,1000]")
	}
	if c.SleepS < 0 {
		return fmt.Errorf("collect.sleep_s must be >= 0")
	}
	if c.Trades.Enabled {
		if c.Trades.WindowMinutes <= 0 {
			return fmt.Errorf("collect.trades.window_minutes must be > 0")
		}
		if c.Trades.PageSize <= 0 || c.Trades.PageSize > 1000 {
			return fmt.Errorf("collect.trades.page_size must be in [1,1000]")
		}
		if c.Trades.MaxRows <= 0 {
			return fmt.Errorf("collect.trades.max_rows must be > 0")
		}
	}
	return nil
}

func (f *FiguresConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.Format)) {
	case "png", "html":
	default:
		return fmt.Errorf("figures.format must be png or html, got %q", f.Format)
	}
	for _, w := range f.VolWindows {
		if w <= 1 {
			return fmt.Errorf("figures.vol_windows entries must be > 1, got %d", w)
		}
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if strings.TrimSpace(s.Listen) == "" {
		return fmt.Errorf("server.listen cannot be empty")
	}
	return nil
}
