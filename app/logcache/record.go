package logcache

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one observed line of a stream, keyed by the log's own line number.
// Empty Timestamp means no timestamp was captured.
type Record struct {
	Index     int
	Text      string
	Timestamp string
}

// Entry is the best-known content for a single index of a stream
type Entry struct {
	Text      string
	Timestamp string
}

// LineNumber is a raw line number as scraped from a source. It decodes from both
// JSON numbers and JSON strings, so watch sources can pass the rendered text as-is.
type LineNumber string

// UnmarshalJSON accepts "150", 150 and null
func (n *LineNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = LineNumber(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	*n = LineNumber(data)
	return nil
}

// RawLine is a line record before normalization, as delivered by a watch source
type RawLine struct {
	Number    LineNumber `json:"number" yaml:"number" jsonschema:"description=line number as rendered by the source"`
	Text      string     `json:"text" yaml:"text" jsonschema:"description=raw line content including its trailing line break"`
	Timestamp string     `json:"timestamp,omitempty" yaml:"timestamp,omitempty" jsonschema:"description=optional rendered timestamp"`
}

// ParseIndex converts a rendered line number into an index.
// Only base-10 integers >= 0 are accepted, surrounding whitespace is ignored.
func ParseIndex(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NormalizeText converts CRLF line breaks to LF and leaves everything else untouched
func NormalizeText(s string) string {
	if !strings.Contains(s, "\r\n") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Normalize builds a Record from a raw line. False means the line is malformed
// (placeholder node, missing or negative number) and must be dropped.
func Normalize(raw RawLine) (Record, bool) {
	idx, ok := ParseIndex(string(raw.Number))
	if !ok {
		return Record{}, false
	}
	return Record{
		Index:     idx,
		Text:      NormalizeText(raw.Text),
		Timestamp: strings.TrimSpace(NormalizeText(raw.Timestamp)),
	}, true
}
