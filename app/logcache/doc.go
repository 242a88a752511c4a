// Package logcache reconstructs complete logs from sources exposing only a moving
// window of them. Each logical log gets a Stream, a sparse index -> entry cache
// fed by Ingest and read back with Materialize and Count. Streams are owned by a Registry.
//
// Ingest is idempotent and order independent: records are keyed by their own line
// number, a later observation can only improve an index, never erase it. Materialize
// concatenates entries in index order without adding separators, so the output is a
// byte-faithful join of what was observed.
package logcache
