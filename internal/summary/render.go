package summary

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

type kv struct {
	key   string
	value string
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmtFloat(*v)
}

func ohlcvRows(s *OHLCVStats) []kv {
	return []kv{
		{"rows", strconv.Itoa(s.Rows)},
		{"start_utc", s.StartUTC},
		{"end_utc", s.EndUTC},
		{"columns", strings.Join(s.Columns, " ")},
		{"missing_rate_close", fmtFloat(s.MissingRateClose)},
		{"logret_mean", fmtPtr(s.LogretMean)},
		{"logret_std", fmtPtr(s.LogretStd)},
		{"logret_kurtosis", fmtPtr(s.LogretKurtosis)},
		{"logret_q01", fmtPtr(s.LogretQ01)},
		{"logret_q05", fmtPtr(s.LogretQ05)},
		{"logret_q50", fmtPtr(s.LogretQ50)},
		{"logret_q95", fmtPtr(s.LogretQ95)},
		{"logret_q99", fmtPtr(s.LogretQ99)},
	}
}

func tradesRows(s *TradesStats) []kv {
	return []kv{
		{"rows", strconv.Itoa(s.Rows)},
		{"start_utc", s.StartUTC},
		{"end_utc", s.EndUTC},
		{"columns", strings.Join(s.Columns, " ")},
		{"interarrival_count", strconv.Itoa(s.InterCount)},
		{"interarrival_mean_s", fmtPtr(s.InterMeanS)},
		{"interarrival_std_s", fmtPtr(s.InterStdS)},
		{"interarrival_s_q01", fmtPtr(s.InterQ01)},
		{"interarrival_s_q05", fmtPtr(s.InterQ05)},
		{"interarrival_s_q50", fmtPtr(s.InterQ50)},
		{"interarrival_s_q95", fmtPtr(s.InterQ95)},
		{"interarrival_s_q99", fmtPtr(s.InterQ99)},
		{"intensity_bars", strconv.Itoa(s.IntensityBars)},
		{"intensity_mean_trades_per_min", fmtPtr(s.IntensityMean)},
		{"intensity_max_trades_per_min", fmtPtr(s.IntensityMax)},
		{"turnover_quote", s.TurnoverQuote.String()},
		{"buy_flow_quote", s.BuyFlowQuote.String()},
		{"sell_flow_quote", s.SellFlowQuote.String()},
	}
}

// flatten lists every summary field as dotted key/value rows, in declaration
// order. The markdown and CSV renderings share it, so the two artifacts never
// disagree on content.
func flatten(s *Summary) []kv {
	rows := []kv{
		{"run_id", s.RunID},
		{"generated_utc", s.GeneratedUTC},
	}
	for _, r := range ohlcvRows(s.OHLCV) {
		rows = append(rows, kv{"ohlcv." + r.key, r.value})
	}
	if s.Trades != nil {
		for _, r := range tradesRows(s.Trades) {
			rows = append(rows, kv{"trades." + r.key, r.value})
		}
	}
	return rows
}

func renderMarkdown(s *Summary) string {
	var b strings.Builder
	b.WriteString("# Data Summary\n\n")
	fmt.Fprintf(&b, "- **run_id:** `%s`\n", s.RunID)
	fmt.Fprintf(&b, "- **generated_utc:** `%s`\n", s.GeneratedUTC)
	b.WriteString("\n## OHLCV\n\n")
	writeTable(&b, ohlcvRows(s.OHLCV))
	if s.Trades != nil {
		b.WriteString("\n## Trades\n\n")
		writeTable(&b, tradesRows(s.Trades))
	}
	b.WriteString("\n## Notes\n\n")
	for _, n := range s.Notes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	return b.String()
}

func writeTable(b *strings.Builder, rows []kv) {
	b.WriteString("| Field | Value |\n")
	b.WriteString("|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| `%s` | %s |\n", r.key, r.value)
	}
}

func renderCSV(s *Summary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"field", "value"}); err != nil {
		return nil, err
	}
	for _, r := range flatten(s) {
		if err := w.Write([]string{r.key, r.value}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
