package symbol

import (
	"strings"
)

// Symbol is a trading pair in internal form (base/quote).
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Exchange is the venue form without separators, e.g. BTCUSDT.
func (s Symbol) Exchange() string {
	return s.Base + s.Quote
}

// FileSlug is the artifact-name form, e.g. BTC-USDT.
func (s Symbol) FileSlug() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "-" + s.Quote
}

var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

// Parse accepts "BTC/USDT", "BTC-USDT" or "BTCUSDT" (quote guessed from the
// common quote currencies) and normalizes to upper case.
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}

	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}

	for _, sep := range []string{"/", "-"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{
				Base:  strings.TrimSpace(parts[0]),
				Quote: strings.TrimSpace(parts[1]),
			}
		}
	}

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{
				Base:  s[:len(s)-len(quote)],
				Quote: quote,
			}
		}
	}

	return Symbol{}
}

func Normalize(s string) string {
	return Parse(s).Internal()
}

// Exchange converts any accepted symbol form to the venue form. Inputs that
// do not parse are passed through with separators stripped.
func Exchange(s string) string {
	if sym := Parse(s); sym.Base != "" {
		return sym.Exchange()
	}
	cleaned := strings.ToUpper(strings.TrimSpace(s))
	cleaned = strings.ReplaceAll(cleaned, "/", "")
	return strings.ReplaceAll(cleaned, "-", "")
}

// FileSlug converts any accepted symbol form to the artifact-name form.
func FileSlug(s string) string {
	if sym := Parse(s); sym.Base != "" {
		return sym.FileSlug()
	}
	cleaned := strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(cleaned, "/", "-")
}

func IsValid(s string) bool {
	sym := Parse(s)
	return sym.Base != "" && sym.Quote != ""
}
