// Package rules holds the provider-specific message templates and the
// deterministic extractor that applies them.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/finsense/internal/domain"
	"golang.org/x/text/cases"
)

// Capture group names every rule may use. Only amount is mandatory.
const (
	GroupAmount = "amount"
	GroupTail   = "tail"
	GroupDate   = "date"
)

// Rule is one provider template for one transaction direction.
type Rule struct {
	Provider  string
	Direction domain.Direction
	Pattern   *regexp.Regexp
}

// RuleSet is an ordered, read-only list of rules. It is safe for concurrent use.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates the rules and folds provider tags for matching.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if r.Provider == "" {
			return nil, fmt.Errorf("NewRuleSet: rule %d: empty provider", i)
		}
		if r.Pattern == nil {
			return nil, fmt.Errorf("NewRuleSet: rule %d (%s): nil pattern", i, r.Provider)
		}
		if r.Pattern.SubexpIndex(GroupAmount) < 0 {
			return nil, fmt.Errorf("NewRuleSet: rule %d (%s): pattern has no %q group", i, r.Provider, GroupAmount)
		}
		if r.Direction != domain.DirectionDebit && r.Direction != domain.DirectionCredit {
			return nil, fmt.Errorf("NewRuleSet: rule %d (%s): invalid direction %q", i, r.Provider, r.Direction)
		}
		r.Provider = fold(r.Provider)
		out = append(out, r)
	}
	return &RuleSet{rules: out}, nil
}

// MustRuleSet is like NewRuleSet but panics on invalid rules.
func MustRuleSet(rules ...Rule) *RuleSet {
	rs, err := NewRuleSet(rules...)
	if err != nil {
		panic(err)
	}
	return rs
}

// ForSender returns the rules whose provider tag appears in sender, in table order.
func (s *RuleSet) ForSender(sender string) []Rule {
	if sender == "" {
		return nil
	}
	folded := fold(sender)

	var matched []Rule
	for _, r := range s.rules {
		if strings.Contains(folded, r.Provider) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Providers lists the distinct provider tags in table order.
func (s *RuleSet) Providers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.rules {
		if !seen[r.Provider] {
			seen[r.Provider] = true
			out = append(out, r.Provider)
		}
	}
	return out
}

// Len reports the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

func fold(s string) string {
	return cases.Fold().String(s)
}

const (
	amountExpr = `(?:Rs\.?|INR|₹)\s*(?P<amount>\d[\d,]*(?:\.\d{1,2})?)`
	tailExpr   = `(?P<tail>\d{4})`
	dateExpr   = `(?P<date>\d{1,2}[-/](?:\d{1,2}|[A-Za-z]{3})[-/]\d{2,4})`
)

// template builds a case-insensitive rule pattern from amount, marker and the
// remaining ordered parts joined with lazy gaps.
func template(marker string, parts ...string) *regexp.Regexp {
	expr := `(?i)` + amountExpr + `.*?\b` + marker + `\b`
	for _, p := range parts {
		expr += `.*` + p
	}
	return regexp.MustCompile(expr)
}

var defaultRuleSet = MustRuleSet(
	Rule{"sbi", domain.DirectionDebit, template(`debited`, `a/c`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"sbi", domain.DirectionCredit, template(`credited`, `a/c`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"hdfc", domain.DirectionDebit, template(`debited`, `a/c`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"hdfc", domain.DirectionCredit, template(`credited`, `a/c`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"icici", domain.DirectionDebit, template(`(?:debited|spent)`, `card`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"icici", domain.DirectionCredit, template(`credited`, `card`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"axis", domain.DirectionDebit, template(`(?:debited|spent)`, `card`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"axis", domain.DirectionCredit, template(`credited`, `card`, tailExpr, `\bon\s+`+dateExpr)},
	Rule{"paytm", domain.DirectionDebit, template(`debited`, `paytm`, `\bon\s+`+dateExpr)},
	Rule{"paytm", domain.DirectionCredit, template(`added`, `paytm`, `\bon\s+`+dateExpr)},
	Rule{"phonepe", domain.DirectionDebit, template(`debited`, `phonepe`, `\bon\s+`+dateExpr)},
	Rule{"phonepe", domain.DirectionCredit, template(`credited`, `phonepe`, `\bon\s+`+dateExpr)},
	Rule{"gpay", domain.DirectionDebit, template(`paid`, `google pay`, `\bon\s+`+dateExpr)},
	Rule{"gpay", domain.DirectionCredit, template(`received`, `google pay`, `\bon\s+`+dateExpr)},
)

// Default returns the built-in Indian bank and wallet rule table.
func Default() *RuleSet {
	return defaultRuleSet
}
