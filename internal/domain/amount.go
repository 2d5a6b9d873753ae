package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberToken = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// currencyAmountPatterns are tried in order by FindAmount.
var currencyAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`₹\s*(\d[\d,]*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)\bRs\.?\s*(\d[\d,]*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)\bINR\s*(\d[\d,]*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d{1,2})?)\s*(?:rupees|rs\b|inr\b)`),
}

// ParseAmount normalizes a single amount token such as "₹1,234.50", "Rs. 1234.50"
// or "INR 1234.50". Currency markers, thousands separators and whitespace are ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	token := numberToken.FindString(strings.ReplaceAll(s, "\u00a0", " "))
	if token == "" {
		return decimal.Decimal{}, fmt.Errorf("ParseAmount: no number in %q", s)
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(token, ",", ""))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ParseAmount: %q: %w", s, err)
	}
	return d, nil
}

// FindAmount scans free text for the first currency-marked amount.
func FindAmount(text string) (decimal.Decimal, bool) {
	for _, p := range currencyAmountPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, err := ParseAmount(strings.TrimRight(m[1], ","))
		if err != nil {
			continue
		}
		return d, true
	}
	return decimal.Decimal{}, false
}
