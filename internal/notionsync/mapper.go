package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/jomei/notionapi"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropDirection     = "Direction"
	PropCategory      = "Category"
	PropSubcategory   = "Subcategory"
	PropMerchant      = "Merchant"
	PropSource        = "Source"
	PropPath          = "Extraction Path"
	PropConfidence    = "Confidence"
	PropImportedAt    = "Imported At"
	PropUser          = "User"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func selectOption(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

func civilTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// MerchantName formats a lower-case merchant key for display.
func MerchantName(merchant string) string {
	return cases.Title(language.English).String(merchant)
}

// TransactionToProperties maps a stored transaction onto the transactions database.
// Empty optional fields are left out so they do not clear values edited in Notion.
func TransactionToProperties(tx domain.StoredTransaction) notionapi.Properties {
	amount, _ := tx.Amount.Float64()

	description := tx.Description
	if description == "" {
		description = tx.RawText
	}

	props := notionapi.Properties{
		PropDescription:   notionapi.TitleProperty{Title: richText(description)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropDate:          dateProperty(civilTime(tx.OccurredOn)),
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropDirection:     selectOption(string(tx.Direction)),
		PropConfidence:    notionapi.NumberProperty{Number: tx.Confidence},
	}

	if tx.UserID != "" {
		props[PropUser] = notionapi.RichTextProperty{RichText: richText(tx.UserID)}
	}
	if tx.Category != "" {
		props[PropCategory] = selectOption(tx.Category)
	}
	if tx.Subcategory != "" {
		props[PropSubcategory] = selectOption(tx.Subcategory)
	}
	if tx.Merchant != "" {
		props[PropMerchant] = notionapi.RichTextProperty{RichText: richText(MerchantName(tx.Merchant))}
	}
	if tx.Source != "" {
		props[PropSource] = selectOption(string(tx.Source))
	}
	if tx.Path != "" {
		props[PropPath] = selectOption(string(tx.Path))
	}
	if !tx.CreatedAt.IsZero() {
		props[PropImportedAt] = dateProperty(tx.CreatedAt)
	}
	return props
}

// transactionIDOf reads the Transaction ID property of a page returned by a query.
func transactionIDOf(page notionapi.Page) string {
	return richTextOf(page, PropTransactionID)
}

// userIDOf reads the User property of a page; empty for pages written without one.
func userIDOf(page notionapi.Page) string {
	return richTextOf(page, PropUser)
}

func richTextOf(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case notionapi.RichTextProperty:
		return plainText(p.RichText)
	}
	return ""
}

func plainText(rt []notionapi.RichText) string {
	if len(rt) == 0 {
		return ""
	}
	if rt[0].PlainText != "" {
		return rt[0].PlainText
	}
	if rt[0].Text != nil {
		return rt[0].Text.Content
	}
	return ""
}
