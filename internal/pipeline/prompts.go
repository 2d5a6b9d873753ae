package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finsense/internal/domain"
)

const extractionSystemPrompt = `You are a financial assistant. Extract the transaction described in raw text.
Return ONLY one JSON object, no prose and no markdown:
{
  "direction": "debit" or "credit",
  "amount": number (positive, no currency symbol),
  "description": "brief description",
  "category": "one of the categories listed below",
  "merchant": "merchant name or null",
  "date": "YYYY-MM-DD",
  "confidence": number between 0.0 and 1.0
}
If the text does not describe a transaction, return exactly: {"error": "No transaction found"}`

// buildExtractionPrompt renders the user turn for one message. categories
// constrains the category field when non-empty.
func buildExtractionPrompt(msg domain.RawMessage, categories []string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Text: %q\n", msg.Text)
	fmt.Fprintf(&b, "Source: %s\n", msg.Source)
	if msg.Sender != "" {
		fmt.Fprintf(&b, "Sender: %s\n", msg.Sender)
	}
	if msg.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	}

	metadata := msg.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	// Marshalling a map[string]string cannot fail.
	meta, _ := json.Marshal(metadata)
	fmt.Fprintf(&b, "Metadata: %s\n", meta)

	if msg.ReceivedAt != nil {
		fmt.Fprintf(&b, "Received: %s\n", msg.ReceivedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Current date: %s\n", now.Format("2006-01-02"))

	if len(categories) > 0 {
		b.WriteString("Categories: " + strings.Join(categories, ", ") + "\n")
	}

	return b.String()
}
