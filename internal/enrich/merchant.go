// Package enrich identifies merchants and assigns spend categories to extracted transactions.
package enrich

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minMerchantLen = 4
	maxMerchantLen = 29
)

type merchantPattern struct {
	tag     string
	pattern *regexp.Regexp
}

var knownMerchants = []merchantPattern{
	{"amazon", regexp.MustCompile(`(?i)amazon`)},
	{"flipkart", regexp.MustCompile(`(?i)flipkart`)},
	{"swiggy", regexp.MustCompile(`(?i)swiggy`)},
	{"zomato", regexp.MustCompile(`(?i)zomato`)},
	{"uber", regexp.MustCompile(`(?i)\buber`)},
	{"ola", regexp.MustCompile(`(?i)\bola\b`)},
	{"myntra", regexp.MustCompile(`(?i)myntra`)},
	{"bigbasket", regexp.MustCompile(`(?i)big\s?basket`)},
	{"grofers", regexp.MustCompile(`(?i)grofers|blinkit`)},
	{"bookmyshow", regexp.MustCompile(`(?i)bookmyshow`)},
	{"makemytrip", regexp.MustCompile(`(?i)makemytrip`)},
	{"petrol", regexp.MustCompile(`(?i)petrol|\bfuel\b`)},
	{"atm", regexp.MustCompile(`(?i)\batm\b`)},
	{"electricity", regexp.MustCompile(`(?i)electricity|\bpower\b`)},
	{"mobile", regexp.MustCompile(`(?i)\bmobile\b|recharge`)},
}

var connectorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bat\s+(.+?)\s+on\b`),
	regexp.MustCompile(`(?i)\bto\s+(.+?)\s+on\b`),
	regexp.MustCompile(`(?i)\bfrom\s+(.+?)\s+on\b`),
	regexp.MustCompile(`(?i)\bpaid\s+to\s+(.+?)\s+via\b`),
	regexp.MustCompile(`(?i)\bsent\s+to\s+(.+?)\s+via\b`),
}

// accountReference rejects connector captures that point at an account rather than a payee.
var accountReference = regexp.MustCompile(`(?i)\ba/?c\b|\bacct|\baccount|[x*]{2,}\d+`)

// MerchantIdentifier finds the counterparty of a transaction message. It is stateless.
type MerchantIdentifier struct {
	known      []merchantPattern
	connectors []*regexp.Regexp
}

// NewMerchantIdentifier returns an identifier over the built-in merchant list.
func NewMerchantIdentifier() *MerchantIdentifier {
	return &MerchantIdentifier{known: knownMerchants, connectors: connectorPatterns}
}

// Identify returns the canonical tag of the first known merchant in text, or
// failing that a payee name captured next to a connector phrase.
func (m *MerchantIdentifier) Identify(text string) (string, bool) {
	for _, km := range m.known {
		if km.pattern.MatchString(text) {
			return km.tag, true
		}
	}

	for _, p := range m.connectors {
		match := p.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		name := strings.Trim(match[1], " \t\r\n.,;:-")
		n := utf8.RuneCountInString(name)
		if n < minMerchantLen || n > maxMerchantLen {
			continue
		}
		if accountReference.MatchString(name) {
			continue
		}
		return name, true
	}

	return "", false
}
