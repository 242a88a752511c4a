package logcache

import (
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Change reports what Ingest did with a record
type Change int

// possible ingest outcomes
const (
	ChangeNone     Change = iota // same or less informative content, nothing stored
	ChangeAdded                  // first observation of the index
	ChangeReplaced               // non-empty, different text replaced the previous entry
	ChangeRejected               // malformed record, dropped
)

func (c Change) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeReplaced:
		return "replaced"
	case ChangeRejected:
		return "rejected"
	default:
		return "none"
	}
}

// Options control decorations added by Materialize
type Options struct {
	Index     bool // prefix each line with "{index}\t"
	Timestamp bool // prefix each line with "[{timestamp}] " when one was captured
}

// Stream is a sparse cache of one logical log, index -> best-known entry.
// Streams are created by Registry only. Thread safe.
type Stream struct {
	id      string
	mu      sync.RWMutex
	entries map[int]Entry
}

func newStream(id string) *Stream {
	return &Stream{id: id, entries: make(map[int]Entry)}
}

// ID returns the stream identifier the cache was registered with
func (s *Stream) ID() string {
	return s.id
}

// Ingest reconciles an observed record with the cache.
// The first observation of an index is always stored, even with empty text.
// Later observations replace it only with non-empty, different text, so a
// freshly mounted but not yet hydrated line never erases captured content.
func (s *Stream) Ingest(rec Record) Change {
	if rec.Index < 0 {
		return ChangeRejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, found := s.entries[rec.Index]
	if !found {
		s.entries[rec.Index] = Entry{Text: rec.Text, Timestamp: rec.Timestamp}
		return ChangeAdded
	}
	if rec.Text == "" || rec.Text == prev.Text {
		return ChangeNone
	}
	s.entries[rec.Index] = Entry{Text: rec.Text, Timestamp: rec.Timestamp}
	return ChangeReplaced
}

// Materialize returns all cached entries concatenated in ascending index order.
// Missing indices are skipped, no separator is added between lines.
func (s *Stream) Materialize(opts Options) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := make([]int, 0, len(s.entries))
	size := 0
	for idx, e := range s.entries {
		indices = append(indices, idx)
		size += len(e.Text)
	}
	slices.Sort(indices)

	var sb strings.Builder
	sb.Grow(size)
	for _, idx := range indices {
		e := s.entries[idx]
		if opts.Index {
			sb.WriteString(strconv.Itoa(idx))
			sb.WriteByte('\t')
		}
		if opts.Timestamp && e.Timestamp != "" {
			sb.WriteByte('[')
			sb.WriteString(e.Timestamp)
			sb.WriteString("] ")
		}
		sb.WriteString(e.Text)
	}
	return sb.String()
}

// Count returns the number of distinct indices cached
func (s *Stream) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entry returns the entry stored at index, if any
func (s *Stream) Entry(index int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[index]
	return e, ok
}
