package domain

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies the channel a raw message arrived through.
type Source string

const (
	SourceManual Source = "manual"
	SourceSMS    Source = "sms"
	SourceEmail  Source = "email"
)

// ParseSource validates a source tag. An empty tag means manual entry.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceManual:
		return SourceManual, nil
	case SourceSMS:
		return SourceSMS, nil
	case SourceEmail, "gmail":
		return SourceEmail, nil
	}
	return "", fmt.Errorf("ParseSource: unknown source %q", s)
}

// RawMessage is unstructured text handed to the pipeline by a source collaborator.
type RawMessage struct {
	Text       string            `json:"text"`
	Source     Source            `json:"source"`
	Sender     string            `json:"sender,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	ReceivedAt *time.Time        `json:"received_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
