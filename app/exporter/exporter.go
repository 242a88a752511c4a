// Package exporter periodically archives materialized streams on a cron schedule
package exporter

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"github.com/robfig/cron/v3"

	"github.com/leynos/hoover/app/archive"
	"github.com/leynos/hoover/app/logcache"
)

//go:generate moq -out mocks/archiver.go -pkg mocks -skip-ensure -fmt goimports . Archiver

// Archiver stores snapshots and trims old ones
type Archiver interface {
	Save(snap archive.Snapshot) (int64, error)
	Cleanup(stream string, keep int) error
}

// Exporter snapshots every stream that grew or changed since its previous export
type Exporter struct {
	Registry    *logcache.Registry
	Store       Archiver
	Schedule    string // standard cron spec or descriptor, e.g. "@every 5m"
	Keep        int    // snapshots kept per stream, 0 keeps all
	Options     logcache.Options
	Concurrency int

	mu       sync.Mutex
	exported map[string]uint64 // stream id -> xxhash of the last exported text
}

// Run schedules exports and blocks until ctx is done
func (e *Exporter) Run(ctx context.Context) error {
	sched, err := cron.ParseStandard(e.Schedule)
	if err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", e.Schedule, err)
	}

	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		n, err := e.Export(ctx)
		if err != nil {
			log.Printf("[WARN] export failed, %v", err)
		}
		if n > 0 {
			log.Printf("[INFO] exported %d snapshots", n)
		}
	}))
	c.Start()
	log.Printf("[INFO] exporter scheduled %q, keep %d per stream", e.Schedule, e.Keep)

	<-ctx.Done()
	<-c.Stop().Done() // wait for a running export to finish
	return ctx.Err()
}

// Export archives changed streams in parallel and returns the number of snapshots saved.
// Errors of individual streams are logged, the last one is returned.
func (e *Exporter) Export(ctx context.Context) (int, error) {
	concur := e.Concurrency
	if concur <= 0 {
		concur = 4
	}

	var (
		mu      sync.Mutex
		saved   int
		lastErr error
	)
	gr := syncs.NewSizedGroup(concur, syncs.Context(ctx))
	for _, id := range e.Registry.IDs() {
		stream, ok := e.Registry.Get(id)
		if !ok {
			continue
		}
		gr.Go(func(context.Context) {
			ok, err := e.exportStream(stream)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[WARN] failed to export %s, %v", stream.ID(), err)
				lastErr = err
				return
			}
			if ok {
				saved++
			}
		})
	}
	gr.Wait()
	return saved, lastErr
}

// exportStream saves one snapshot if the stream has content not exported yet
func (e *Exporter) exportStream(stream *logcache.Stream) (bool, error) {
	count := stream.Count()
	if count == 0 {
		return false, nil
	}
	text := stream.Materialize(e.Options)
	if !e.changed(stream.ID(), text) {
		return false, nil
	}

	if _, err := e.Store.Save(archive.Snapshot{Stream: stream.ID(), Lines: count,
		Index: e.Options.Index, Timestamp: e.Options.Timestamp, Text: text}); err != nil {
		return false, err
	}
	e.markExported(stream.ID(), text)

	if err := e.Store.Cleanup(stream.ID(), e.Keep); err != nil {
		log.Printf("[WARN] %v", err)
	}
	return true, nil
}

func (e *Exporter) changed(id, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.exported[id]
	return !ok || prev != xxhash.Sum64String(text)
}

func (e *Exporter) markExported(id, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exported == nil {
		e.exported = map[string]uint64{}
	}
	e.exported[id] = xxhash.Sum64String(text)
}
