package logcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_Ingest(t *testing.T) {
	tbl := []struct {
		name  string
		prev  *Record
		rec   Record
		want  Change
		entry Entry
	}{
		{name: "first observation", rec: Record{Index: 1, Text: "a\n"}, want: ChangeAdded, entry: Entry{Text: "a\n"}},
		{name: "first observation empty", rec: Record{Index: 1}, want: ChangeAdded, entry: Entry{}},
		{name: "same text", prev: &Record{Index: 1, Text: "a\n"}, rec: Record{Index: 1, Text: "a\n"},
			want: ChangeNone, entry: Entry{Text: "a\n"}},
		{name: "empty over text", prev: &Record{Index: 1, Text: "a\n", Timestamp: "10:00"}, rec: Record{Index: 1, Timestamp: "11:00"},
			want: ChangeNone, entry: Entry{Text: "a\n", Timestamp: "10:00"}},
		{name: "text over empty", prev: &Record{Index: 1}, rec: Record{Index: 1, Text: "a\n", Timestamp: "10:00"},
			want: ChangeReplaced, entry: Entry{Text: "a\n", Timestamp: "10:00"}},
		{name: "correction", prev: &Record{Index: 1, Text: "a\n", Timestamp: "10:00"}, rec: Record{Index: 1, Text: "b\n"},
			want: ChangeReplaced, entry: Entry{Text: "b\n"}},
		{name: "same text new timestamp", prev: &Record{Index: 1, Text: "a\n", Timestamp: "10:00"},
			rec: Record{Index: 1, Text: "a\n", Timestamp: "11:00"}, want: ChangeNone, entry: Entry{Text: "a\n", Timestamp: "10:00"}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRegistry().GetOrCreate("step")
			if tt.prev != nil {
				s.Ingest(*tt.prev)
			}
			assert.Equal(t, tt.want, s.Ingest(tt.rec))
			e, ok := s.Entry(tt.rec.Index)
			require.True(t, ok)
			assert.Equal(t, tt.entry, e)
			assert.Equal(t, 1, s.Count())
		})
	}
}

func TestStream_IngestRejectsNegativeIndex(t *testing.T) {
	s := NewRegistry().GetOrCreate("step")
	assert.NotPanics(t, func() {
		assert.Equal(t, ChangeRejected, s.Ingest(Record{Index: -1, Text: "boom\n"}))
	})
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.Materialize(Options{Index: true, Timestamp: true}))
}

func TestStream_Idempotence(t *testing.T) {
	recs := []Record{
		{Index: 0, Text: "line0\n", Timestamp: "12:00:00"},
		{Index: 3, Text: ""},
		{Index: 7, Text: "line7\n"},
	}
	for _, r := range recs {
		once := NewRegistry().GetOrCreate("once")
		twice := NewRegistry().GetOrCreate("twice")
		once.Ingest(r)
		twice.Ingest(r)
		twice.Ingest(r)
		for _, opts := range allOptions() {
			assert.Equal(t, once.Materialize(opts), twice.Materialize(opts), "record %+v, opts %+v", r, opts)
		}
	}
}

func TestStream_OrderIndependence(t *testing.T) {
	recs := []Record{
		{Index: 4, Text: "four\n", Timestamp: "t4"},
		{Index: 0, Text: "zero\n"},
		{Index: 2, Text: "two\n", Timestamp: "t2"},
		{Index: 9, Text: ""},
	}

	var expected string
	for i, perm := range permutations(recs) {
		s := NewRegistry().GetOrCreate("step")
		for _, r := range perm {
			s.Ingest(r)
		}
		got := s.Materialize(Options{Index: true, Timestamp: true})
		if i == 0 {
			expected = got
			continue
		}
		require.Equal(t, expected, got, "permutation %d: %+v", i, perm)
	}
	assert.Equal(t, "0\tzero\n2\t[t2] two\n4\t[t4] four\n9\t", expected)
}

func TestStream_MonotonicImprovement(t *testing.T) {
	s := NewRegistry().GetOrCreate("step")
	s.Ingest(Record{Index: 5})
	s.Ingest(Record{Index: 5, Text: "real\n"})
	e, ok := s.Entry(5)
	require.True(t, ok)
	assert.Equal(t, "real\n", e.Text)

	s.Ingest(Record{Index: 5, Text: ""})
	e, ok = s.Entry(5)
	require.True(t, ok)
	assert.Equal(t, "real\n", e.Text, "empty placeholder must not erase captured text")

	// output only grows as more of the window is observed
	before := s.Materialize(Options{})
	s.Ingest(Record{Index: 1, Text: "first\n"})
	s.Ingest(Record{Index: 5, Text: ""})
	after := s.Materialize(Options{})
	assert.Contains(t, after, before)
	assert.Greater(t, len(after), len(before))
}

func TestStream_MaterializeSparse(t *testing.T) {
	s := NewRegistry().GetOrCreate("step")
	s.Ingest(Record{Index: 5, Text: "five\n"})
	s.Ingest(Record{Index: 0, Text: "zero\n"})
	s.Ingest(Record{Index: 2, Text: "two\n"})

	assert.Equal(t, "zero\ntwo\nfive\n", s.Materialize(Options{}))
	assert.Equal(t, 3, s.Count())
}

func TestStream_MaterializeDecorations(t *testing.T) {
	s := NewRegistry().GetOrCreate("step")
	s.Ingest(Record{Index: 42, Text: "boom\n", Timestamp: "12:00:01"})
	s.Ingest(Record{Index: 43, Text: "no ts\n"})
	s.Ingest(Record{Index: 44, Text: "no newline"})

	tbl := []struct {
		opts Options
		want string
	}{
		{Options{}, "boom\nno ts\nno newline"},
		{Options{Index: true}, "42\tboom\n43\tno ts\n44\tno newline"},
		{Options{Timestamp: true}, "[12:00:01] boom\nno ts\nno newline"},
		{Options{Index: true, Timestamp: true}, "42\t[12:00:01] boom\n43\tno ts\n44\tno newline"},
	}
	for _, tt := range tbl {
		t.Run(fmt.Sprintf("%+v", tt.opts), func(t *testing.T) {
			got := s.Materialize(tt.opts)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, s.Materialize(tt.opts), "materialize must be deterministic")
		})
	}
	assert.Contains(t, s.Materialize(Options{Index: true, Timestamp: true}), "42\t[12:00:01] boom\n")
}

func TestStream_PlaceholderRemountScenario(t *testing.T) {
	s := NewRegistry().GetOrCreate("step")
	s.Ingest(Record{Index: 0, Text: "line0\n"})
	s.Ingest(Record{Index: 2, Text: "line2\n"})
	s.Ingest(Record{Index: 0, Text: ""})

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, "line0\nline2\n", s.Materialize(Options{}))
}

func TestStream_ConcurrentIngestAndMaterialize(t *testing.T) {
	s := NewRegistry().GetOrCreate("step")
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Ingest(Record{Index: i, Text: fmt.Sprintf("line %d\n", i)})
				if i%50 == 0 {
					_ = s.Materialize(Options{Index: true})
					_ = s.Count()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 500, s.Count())
}

func TestChange_String(t *testing.T) {
	assert.Equal(t, "added", ChangeAdded.String())
	assert.Equal(t, "replaced", ChangeReplaced.String())
	assert.Equal(t, "rejected", ChangeRejected.String())
	assert.Equal(t, "none", ChangeNone.String())
}

func allOptions() []Options {
	return []Options{{}, {Index: true}, {Timestamp: true}, {Index: true, Timestamp: true}}
}

func permutations(recs []Record) [][]Record {
	if len(recs) <= 1 {
		return [][]Record{append([]Record(nil), recs...)}
	}
	var res [][]Record
	for i := range recs {
		rest := make([]Record, 0, len(recs)-1)
		rest = append(rest, recs[:i]...)
		rest = append(rest, recs[i+1:]...)
		for _, p := range permutations(rest) {
			res = append(res, append([]Record{recs[i]}, p...))
		}
	}
	return res
}
