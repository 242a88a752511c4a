package logcache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndex(t *testing.T) {
	tbl := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0", 0, true},
		{"150", 150, true},
		{"  42\n", 42, true},
		{"", 0, false},
		{"   ", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
		{"1.5", 0, false},
	}
	for _, tt := range tbl {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseIndex(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\nb\n", NormalizeText("a\r\nb\r\n"))
	assert.Equal(t, "  indented > kept\n", NormalizeText("  indented > kept\n"))
	assert.Equal(t, "lone\rcr", NormalizeText("lone\rcr"))
	assert.Empty(t, NormalizeText(""))
}

func TestNormalize(t *testing.T) {
	rec, ok := Normalize(RawLine{Number: " 7 ", Text: "hello\r\n", Timestamp: " 2024-01-01T10:00:00Z \n"})
	require.True(t, ok)
	assert.Equal(t, Record{Index: 7, Text: "hello\n", Timestamp: "2024-01-01T10:00:00Z"}, rec)

	_, ok = Normalize(RawLine{Number: "", Text: "placeholder"})
	assert.False(t, ok)
	_, ok = Normalize(RawLine{Number: "-3", Text: "negative"})
	assert.False(t, ok)
}

func TestLineNumber_UnmarshalJSON(t *testing.T) {
	tbl := []struct {
		in   string
		want LineNumber
	}{
		{`{"number": 150}`, "150"},
		{`{"number": "150"}`, "150"},
		{`{"number": null}`, ""},
		{`{"number": -2}`, "-2"},
		{`{}`, ""},
	}
	for _, tt := range tbl {
		t.Run(tt.in, func(t *testing.T) {
			var line RawLine
			require.NoError(t, json.Unmarshal([]byte(tt.in), &line))
			assert.Equal(t, tt.want, line.Number)
		})
	}

	var line RawLine
	assert.Error(t, json.Unmarshal([]byte(`{"number": "unterminated}`), &line))
}
