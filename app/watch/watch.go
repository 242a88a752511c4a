// Package watch provides sources feeding observed line windows into the log cache.
// A source enumerates whatever lines are currently visible, packs them into a Batch
// and calls Apply. Sources may deliver the same lines many times, in any order.
package watch

import (
	"context"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leynos/hoover/app/logcache"
)

var linesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hoover_ingested_lines_total",
	Help: "Line records passed to stream caches, by outcome",
}, []string{"outcome"})

// Source is a long-running producer of batches, blocking until ctx is done
type Source interface {
	Run(ctx context.Context, reg *logcache.Registry) error
}

// Batch is one enumeration of the lines visible in a stream's window
type Batch struct {
	Stream string             `json:"stream" yaml:"stream" jsonschema:"description=stream identifier; a random one is used when empty"`
	Lines  []logcache.RawLine `json:"lines" yaml:"lines" jsonschema:"description=line records currently visible in the window"`
}

// Stats summarizes what Apply did with a batch
type Stats struct {
	Stream   string `json:"stream"`
	Added    int    `json:"added"`
	Replaced int    `json:"replaced"`
	Ignored  int    `json:"ignored"`
	Rejected int    `json:"rejected"`
	Count    int    `json:"count"`
}

// Apply ingests every line of the batch into the stream it names.
// Malformed lines are dropped and counted, never reported as errors.
func Apply(reg *logcache.Registry, b Batch) Stats {
	id := StreamID(b.Stream)
	stream := reg.GetOrCreate(id)
	stats := Stats{Stream: id}

	for _, raw := range b.Lines {
		rec, ok := logcache.Normalize(raw)
		if !ok {
			stats.Rejected++
			linesTotal.WithLabelValues(logcache.ChangeRejected.String()).Inc()
			continue
		}
		change := stream.Ingest(rec)
		linesTotal.WithLabelValues(change.String()).Inc()
		switch change {
		case logcache.ChangeAdded:
			stats.Added++
		case logcache.ChangeReplaced:
			stats.Replaced++
		case logcache.ChangeRejected:
			stats.Rejected++
		default:
			stats.Ignored++
		}
	}
	stats.Count = stream.Count()

	if stats.Added+stats.Replaced > 0 {
		log.Printf("[DEBUG] stream %s: +%d ~%d, %d lines captured", id, stats.Added, stats.Replaced, stats.Count)
	}
	return stats
}

// StreamID returns the first non-blank candidate. With no usable candidate it
// returns a random id, which means a fresh cache for every call: callers that
// need continuity must supply a stable attribute.
func StreamID(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return uuid.NewString()
}
