package gcs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvloznov/finsense/internal/domain"
)

// maxLineSize bounds a single JSON Lines record. Email bodies can be long.
const maxLineSize = 4 << 20

// DecodeMessages reads one RawMessage per line. Blank lines are skipped and
// source tags are normalized; an unknown tag fails the whole batch.
func DecodeMessages(r io.Reader) ([]domain.RawMessage, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var msgs []domain.RawMessage
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		var msg domain.RawMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("DecodeMessages: line %d: %w", line, err)
		}
		src, err := domain.ParseSource(string(msg.Source))
		if err != nil {
			return nil, fmt.Errorf("DecodeMessages: line %d: %w", line, err)
		}
		msg.Source = src
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("DecodeMessages: %w", err)
	}
	return msgs, nil
}

// LoadMessages reads a JSON Lines batch from a gs:// URI through svc, or from
// the local filesystem for any other path.
func LoadMessages(ctx context.Context, svc StorageService, uri string) ([]domain.RawMessage, error) {
	if !strings.HasPrefix(uri, "gs://") {
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("LoadMessages: %w", err)
		}
		defer f.Close()
		return DecodeMessages(f)
	}

	data, err := svc.FetchFromGCS(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("LoadMessages: %w", err)
	}
	return DecodeMessages(bytes.NewReader(data))
}
