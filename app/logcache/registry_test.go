package logcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry()
	s := reg.GetOrCreate("a")
	require.NotNil(t, s)
	assert.Equal(t, "a", s.ID())
	s.Ingest(Record{Index: 1, Text: "one\n"})

	again := reg.GetOrCreate("a")
	assert.Same(t, s, again, "identity must be stable for the same id")
	assert.Equal(t, 1, again.Count())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry()
	s, ok := reg.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, s)
	assert.Equal(t, 0, reg.Len(), "read lookup must not create a cache")

	created := reg.GetOrCreate("present")
	s, ok = reg.Get("present")
	require.True(t, ok)
	assert.Same(t, created, s)
}

func TestRegistry_Isolation(t *testing.T) {
	reg := NewRegistry()
	a := reg.GetOrCreate("a")
	b := reg.GetOrCreate("b")
	b.Ingest(Record{Index: 0, Text: "b0\n"})
	before := b.Materialize(Options{Index: true})

	a.Ingest(Record{Index: 0, Text: "a0\n"})
	a.Ingest(Record{Index: 1, Text: "a1\n"})

	assert.Equal(t, 1, b.Count())
	assert.Equal(t, before, b.Materialize(Options{Index: true}))
	assert.Equal(t, 2, a.Count())

	// independent registries share nothing
	other := NewRegistry()
	_, ok := other.Get("a")
	assert.False(t, ok)
}

func TestRegistry_IDs(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"step-3", "step-1", "step-2"} {
		reg.GetOrCreate(id)
	}
	assert.Equal(t, []string{"step-1", "step-2", "step-3"}, reg.IDs())
	assert.Empty(t, NewRegistry().IDs())
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	reg := NewRegistry()
	streams := make([]*Stream, 16)
	var wg sync.WaitGroup
	for i := range streams {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			streams[i] = reg.GetOrCreate("same")
		}(i)
	}
	wg.Wait()
	for _, s := range streams {
		assert.Same(t, streams[0], s)
	}
	assert.Equal(t, 1, reg.Len())
}
