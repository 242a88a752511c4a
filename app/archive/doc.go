// Package archive keeps materialized snapshots of streams in SQLite (WAL mode),
// with snapshot text stored zstd compressed.
// It is a history for consumers only: nothing here is ever loaded back into the
// log cache, caches always start empty.
package archive
