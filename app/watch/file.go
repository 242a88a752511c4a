package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"gopkg.in/yaml.v3"

	"github.com/leynos/hoover/app/logcache"
)

// FileSource watches a directory of window dumps. Every YAML (or JSON) document in
// a dump file is one Batch; a file may be rewritten any number of times with
// whatever window its producer sees next. Batches without a stream id use the
// file name without extension.
type FileSource struct {
	Dir         string
	Debounce    time.Duration // postpone processing until a file stops changing
	Concurrency int           // parallel parsers for the initial sweep
}

// Run sweeps existing dumps, then applies every created or rewritten dump until ctx is done
func (f *FileSource) Run(ctx context.Context, reg *logcache.Registry) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.Dir, err)
	}
	log.Printf("[INFO] watching window dumps in %s", f.Dir)

	f.sweep(ctx, reg)

	debounce := f.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !isDumpFile(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] watcher error for %s: %v", f.Dir, err)
		case <-ticker.C:
			for path, ts := range pending {
				if time.Since(ts) < debounce {
					continue // still changing
				}
				delete(pending, path)
				if _, err := f.applyFile(reg, path); err != nil {
					log.Printf("[WARN] can't apply %s, %v", path, err)
				}
			}
		}
	}
}

// sweep applies dumps already present in the directory
func (f *FileSource) sweep(ctx context.Context, reg *logcache.Registry) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		log.Printf("[WARN] can't list %s, %v", f.Dir, err)
		return
	}

	concur := f.Concurrency
	if concur <= 0 {
		concur = 4
	}

	var mu sync.Mutex
	batches := 0
	gr := syncs.NewSizedGroup(concur, syncs.Context(ctx))
	for _, e := range entries {
		if e.IsDir() || !isDumpFile(e.Name()) {
			continue
		}
		path := filepath.Join(f.Dir, e.Name())
		gr.Go(func(context.Context) {
			n, err := f.applyFile(reg, path)
			if err != nil {
				log.Printf("[WARN] can't apply %s, %v", path, err)
			}
			mu.Lock()
			batches += n
			mu.Unlock()
		})
	}
	gr.Wait()
	log.Printf("[INFO] initial sweep of %s applied %d batches, %d streams known", f.Dir, batches, reg.Len())
}

// applyFile decodes all documents of a dump and applies them, returning the number of batches applied.
// Documents decoded before a parse error are kept.
func (f *FileSource) applyFile(reg *logcache.Registry, path string) (int, error) {
	fh, err := os.Open(path) //nolint:gosec // path comes from the watched directory
	if err != nil {
		return 0, fmt.Errorf("failed to open dump: %w", err)
	}
	defer fh.Close()

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return decodeBatches(fh, func(b Batch) {
		b.Stream = StreamID(b.Stream, fallback)
		Apply(reg, b)
	})
}

// decodeBatches calls fn for every non-empty document in r
func decodeBatches(r io.Reader, fn func(Batch)) (int, error) {
	dec := yaml.NewDecoder(r)
	n := 0
	for {
		var b Batch
		err := dec.Decode(&b)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to decode batch %d: %w", n+1, err)
		}
		if len(b.Lines) == 0 {
			continue
		}
		fn(b)
		n++
	}
}

func isDumpFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false // editor swap and temp files
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
