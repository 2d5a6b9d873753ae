// Package decode recovers structured items from free-text model responses.
//
// Recovery is an ordered list of strategies. Each strategy is a pure function from
// the raw response to zero or more JSON objects; the first strategy whose objects
// yield at least one valid item wins.
package decode

import (
	"cmp"
	"encoding/json"
	"regexp"
	"slices"
	"strings"
)

// MaxResponseBytes bounds the text handed to the cascade. Longer responses are
// reported as OutcomeOversized without being scanned.
const MaxResponseBytes = 256 << 10

// maxSpanAttempts bounds how many bracketed spans the array stage tries to decode.
const maxSpanAttempts = 32

// Stage identifies the strategy that recovered a result.
type Stage int

const (
	StageNone Stage = iota
	StageDirect
	StageArraySpan
	StageObjectSpan
	StageObjectScan
)

func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageArraySpan:
		return "array_span"
	case StageObjectSpan:
		return "object_span"
	case StageObjectScan:
		return "object_scan"
	default:
		return "none"
	}
}

// Strategy is one recovery step.
type Strategy struct {
	Stage   Stage
	Recover func(raw string) []Fields
}

// Direct strips fence markers and parses the remainder as an array or object.
func Direct() Strategy {
	return Strategy{Stage: StageDirect, Recover: recoverDirect}
}

// ArraySpan parses the first balanced [...] span that decodes to an array of objects.
func ArraySpan() Strategy {
	return Strategy{Stage: StageArraySpan, Recover: recoverArraySpan}
}

// ObjectSpan parses the text from the first '{' to the last '}'.
func ObjectSpan() Strategy {
	return Strategy{Stage: StageObjectSpan, Recover: recoverObjectSpan}
}

// ObjectScan parses every non-greedy {...} match independently.
func ObjectScan() Strategy {
	return Strategy{Stage: StageObjectScan, Recover: recoverObjectScan}
}

// Cascade is an ordered list of strategies.
type Cascade struct {
	strategies []Strategy
}

// NewCascade returns a cascade trying strategies in the given order. With no
// arguments it uses all four stages.
func NewCascade(strategies ...Strategy) *Cascade {
	if len(strategies) == 0 {
		strategies = []Strategy{Direct(), ArraySpan(), ObjectSpan(), ObjectScan()}
	}
	return &Cascade{strategies: strategies}
}

// Objects returns the objects from the first strategy that produced any, together
// with its stage. It performs no validation.
func (c *Cascade) Objects(raw string) ([]Fields, Stage) {
	for _, s := range c.strategies {
		if objs := s.Recover(raw); len(objs) > 0 {
			return objs, s.Stage
		}
	}
	return nil, StageNone
}

// Recover runs the cascade, converting each recovered object with convert. It stops
// at the first stage that yields at least one valid item. It never panics on
// malformed input.
func Recover[T any](c *Cascade, raw string, convert func(Fields) (T, error)) Result[T] {
	if strings.TrimSpace(raw) == "" {
		return Result[T]{Outcome: OutcomeEmptyResponse}
	}
	if len(raw) > MaxResponseBytes {
		return Result[T]{Outcome: OutcomeOversized}
	}

	res := Result[T]{Outcome: OutcomeUnparseable}
	for _, s := range c.strategies {
		objs := s.Recover(raw)
		if len(objs) == 0 {
			continue
		}

		valid := make([]T, 0, len(objs))
		for _, obj := range objs {
			item, err := convert(obj)
			if err != nil {
				continue
			}
			valid = append(valid, item)
		}

		if len(valid) == 0 {
			res.Outcome = OutcomeNoValidItems
			res.Dropped = len(objs)
			continue
		}

		return Result[T]{
			Valid:   valid,
			Stage:   s.Stage,
			Outcome: OutcomeRecovered,
			Dropped: len(objs) - len(valid),
		}
	}

	return res
}

func recoverDirect(raw string) []Fields {
	body := stripFences(raw)
	if body == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil
	}
	return objectsOf(v)
}

func recoverArraySpan(raw string) []Fields {
	for i, span := range balancedSpans(raw, '[', ']') {
		if i == maxSpanAttempts {
			break
		}
		var arr []any
		if err := json.Unmarshal([]byte(span), &arr); err != nil {
			continue
		}
		if objs := objectsOf(arr); len(objs) > 0 {
			return objs
		}
	}
	return nil
}

var (
	greedyObject    = regexp.MustCompile(`(?s)\{.*\}`)
	nonGreedyObject = regexp.MustCompile(`\{[\s\S]*?\}`)
)

func recoverObjectSpan(raw string) []Fields {
	span := greedyObject.FindString(raw)
	if span == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil || obj == nil {
		return nil
	}
	return []Fields{obj}
}

func recoverObjectScan(raw string) []Fields {
	var objs []Fields
	for _, span := range nonGreedyObject.FindAllString(raw, -1) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err != nil || obj == nil {
			continue
		}
		objs = append(objs, obj)
	}
	return objs
}

// objectsOf flattens a decoded value into objects. An array contributes its object
// elements; an object wrapping a single array (e.g. {"insights": [...]}) is unwrapped.
func objectsOf(v any) []Fields {
	switch val := v.(type) {
	case []any:
		objs := make([]Fields, 0, len(val))
		for _, el := range val {
			if obj, ok := el.(map[string]any); ok {
				objs = append(objs, obj)
			}
		}
		return objs
	case map[string]any:
		if len(val) == 1 {
			for _, inner := range val {
				if arr, ok := inner.([]any); ok {
					if objs := objectsOf(arr); len(objs) > 0 {
						return objs
					}
				}
			}
		}
		return []Fields{val}
	default:
		return nil
	}
}

// balancedSpans returns every balanced open...close span in s, ordered by start
// position, in a single pass. Delimiters inside JSON strings are ignored; quotes
// outside any span are treated as prose.
func balancedSpans(s string, open, close byte) []string {
	type span struct{ start, end int }

	var (
		found    []span
		starts   []int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = len(starts) > 0
		case open:
			starts = append(starts, i)
		case close:
			if n := len(starts); n > 0 {
				found = append(found, span{starts[n-1], i})
				starts = starts[:n-1]
			}
		}
	}

	slices.SortFunc(found, func(a, b span) int { return cmp.Compare(a.start, b.start) })
	spans := make([]string, 0, len(found))
	for _, sp := range found {
		spans = append(spans, s[sp.start:sp.end+1])
	}
	return spans
}
