package enrich

import (
	"strings"

	"github.com/dvloznov/finsense/internal/domain"
	"golang.org/x/text/cases"
)

var merchantCategories = map[string]string{
	"amazon":      "Shopping",
	"flipkart":    "Shopping",
	"myntra":      "Shopping",
	"swiggy":      "Food & Dining",
	"zomato":      "Food & Dining",
	"uber":        "Transportation",
	"ola":         "Transportation",
	"bigbasket":   "Groceries",
	"grofers":     "Groceries",
	"bookmyshow":  "Entertainment",
	"makemytrip":  "Travel",
	"petrol":      "Fuel",
	"atm":         "ATM",
	"electricity": "Utilities",
	"mobile":      "Utilities",
}

type keywordCategory struct {
	category string
	keywords []string
}

// keywordCategories is scanned in order; the first list with a hit wins.
var keywordCategories = []keywordCategory{
	{"Food & Dining", []string{"restaurant", "food", "dining", "cafe", "hotel", "swiggy", "zomato"}},
	{"Shopping", []string{"shopping", "store", "mall", "purchase", "amazon", "flipkart", "myntra"}},
	{"Transportation", []string{"taxi", "uber", "ola", "metro", "bus", "petrol", "fuel"}},
	{"Entertainment", []string{"movie", "cinema", "bookmyshow", "entertainment", "game"}},
	{"Utilities", []string{"electricity", "water", "gas", "internet", "mobile", "recharge"}},
	{"Healthcare", []string{"hospital", "medical", "pharmacy", "doctor", "clinic"}},
	{"ATM", []string{"atm", "cash withdrawal"}},
	{"Transfer", []string{"transfer", "sent", "received", "upi", "neft", "imps"}},
	{"Investment", []string{"mutual fund", "sip", "investment", "stock", "share"}},
	{"Insurance", []string{"insurance", "premium", "policy"}},
}

// Classifier assigns a spend category. It never fails.
type Classifier struct {
	byMerchant map[string]string
	keywords   []keywordCategory
}

// NewClassifier returns a classifier over the built-in tables.
func NewClassifier() *Classifier {
	return &Classifier{byMerchant: merchantCategories, keywords: keywordCategories}
}

// Classify returns the merchant's category when known, otherwise the first
// keyword category found in text, otherwise domain.DefaultCategory.
func (c *Classifier) Classify(text, merchant string) string {
	if merchant != "" {
		if cat, ok := c.byMerchant[cases.Fold().String(strings.TrimSpace(merchant))]; ok {
			return cat
		}
	}

	body := cases.Fold().String(text)
	for _, kc := range c.keywords {
		for _, kw := range kc.keywords {
			if strings.Contains(body, kw) {
				return kc.category
			}
		}
	}

	return domain.DefaultCategory
}

// Categories lists every category the classifier can return, in table order.
func (c *Classifier) Categories() []string {
	seen := map[string]bool{domain.DefaultCategory: true}
	out := []string{}
	add := func(cat string) {
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	for _, kc := range c.keywords {
		add(kc.category)
	}
	for _, tag := range knownMerchants {
		if cat, ok := c.byMerchant[tag.tag]; ok {
			add(cat)
		}
	}
	return append(out, domain.DefaultCategory)
}
