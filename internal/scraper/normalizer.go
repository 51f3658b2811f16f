package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/fareradar/internal/models"
)

// CurrencySymbols maps the symbols sources print to ISO codes.
var CurrencySymbols = map[string]string{
	"$":   "USD",
	"US$": "USD",
	"€":   "EUR",
	"£":   "GBP",
	"¥":   "JPY",
	"Rp":  "IDR",
	"C$":  "CAD",
	"A$":  "AUD",
}

var (
	priceRe = regexp.MustCompile(`(US\$|C\$|A\$|Rp|[$€£¥]|\b[A-Z]{3}\b)?\s?(\d{1,3}(?:[,.\s]\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	stopsRe = regexp.MustCompile(`(?i)(\d+)\s*stops?`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ParsePrice extracts the first price in text. Example: "$1,234" -> 1234 USD.
// defaultCurrency is used when the text carries no symbol or code.
func ParsePrice(text, defaultCurrency string) (models.Money, error) {
	matches := priceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return models.Money{}, fmt.Errorf("no price in %q", text)
	}
	// Prefer the first amount carrying a currency over bare numbers such as
	// durations.
	m := matches[0]
	for _, candidate := range matches {
		if candidate[1] != "" {
			m = candidate
			break
		}
	}

	currency := defaultCurrency
	if m[1] != "" {
		if iso, ok := CurrencySymbols[m[1]]; ok {
			currency = iso
		} else {
			currency = m[1]
		}
	}

	digits := strings.NewReplacer(",", "", " ", "").Replace(m[2])
	// A dot followed by exactly three digits is a thousands separator.
	if i := strings.LastIndex(digits, "."); i >= 0 && len(digits)-i-1 == 3 {
		digits = strings.ReplaceAll(digits, ".", "")
	}

	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return models.Money{}, fmt.Errorf("invalid price %q: %w", m[2], err)
	}
	if currency == "" {
		return models.Money{}, fmt.Errorf("no currency for price %q", text)
	}
	return models.Money{Amount: amount, Currency: NormalizeCurrency(currency)}, nil
}

// NormalizeCurrency upper-cases codes and maps symbols.
func NormalizeCurrency(c string) string {
	c = strings.TrimSpace(c)
	if iso, ok := CurrencySymbols[c]; ok {
		return iso
	}
	return strings.ToUpper(c)
}

// ParseStops reads "Nonstop", "1 stop", "2 stops". Unknown returns -1.
func ParseStops(text string) int {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "nonstop") || strings.Contains(lower, "non-stop") || strings.Contains(lower, "direct") {
		return 0
	}
	if m := stopsRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n
		}
	}
	return -1
}

// carrierAliases folds the spellings sources use into one name.
var carrierAliases = map[string]string{
	"united airlines":   "United",
	"united":            "United",
	"delta air lines":   "Delta",
	"delta":             "Delta",
	"american airlines": "American",
	"american":          "American",
	"garuda indonesia":  "Garuda Indonesia",
	"garuda":            "Garuda Indonesia",
}

// NormalizeCarrier trims and collapses whitespace and applies known aliases.
// Example: "  united   airlines " -> "United"
func NormalizeCarrier(name string) string {
	name = strings.TrimSpace(spaceRe.ReplaceAllString(name, " "))
	if name == "" {
		return "Unknown"
	}
	if alias, ok := carrierAliases[strings.ToLower(name)]; ok {
		return alias
	}
	return name
}

// NormalizeDuration collapses whitespace in a quoted duration ("14 hr  5 min").
func NormalizeDuration(d string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(d, " "))
}
