package rules

import "strings"

const minFinancialLen = 10

var financialKeywords = []string{
	"debited", "credited", "debit", "credit", "balance", "transaction", "txn",
	"payment", "paid", "received", "transfer", "withdrawn", "deposited",
	"upi", "neft", "imps", "rtgs", "rs.", "rs ", "inr", "₹", "a/c", "account",
	"card", "wallet",
}

// IsFinancial reports whether text looks like a bank or payment message.
func IsFinancial(text string) bool {
	if len(strings.TrimSpace(text)) < minFinancialLen {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
