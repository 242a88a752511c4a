package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leynos/hoover/app/archive"
	"github.com/leynos/hoover/app/logcache"
	"github.com/leynos/hoover/app/watch"
)

var snapshotsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hoover_api_snapshots_total",
	Help: "Snapshots archived on request.",
})

// APIStream is a stream in JSON API responses
type APIStream struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// APIStreamsResponse is the JSON response for /api/v1/streams
type APIStreamsResponse struct {
	Streams []APIStream `json:"streams"`
}

// APISnapshot is a snapshot in JSON API responses, text is set only for a single snapshot
type APISnapshot struct {
	ID        int64     `json:"id"`
	Stream    string    `json:"stream"`
	CreatedAt time.Time `json:"created_at"`
	Lines     int       `json:"lines"`
	Index     bool      `json:"index"`
	Timestamp bool      `json:"timestamp"`
	Text      string    `json:"text,omitempty"`
}

// APIStatusResponse is the JSON response for /api/v1/status
type APIStatusResponse struct {
	Version   string    `json:"version"`
	Streams   int       `json:"streams"`
	Lines     int       `json:"lines"`
	Uptime    string    `json:"uptime"`
	Archive   bool      `json:"archive"`
	System    SysInfo   `json:"system"`
	Timestamp time.Time `json:"timestamp"`
}

func toAPISnapshot(s archive.Snapshot) APISnapshot {
	return APISnapshot{
		ID:        s.ID,
		Stream:    s.Stream,
		CreatedAt: s.CreatedAt,
		Lines:     s.Lines,
		Index:     s.Index,
		Timestamp: s.Timestamp,
		Text:      s.Text,
	}
}

// handleIngest applies a posted window batch to the registry
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var batch watch.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid batch: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, watch.Apply(s.registry, batch))
}

// handleListStreams returns all known streams sorted by id
func (s *Server) handleListStreams(w http.ResponseWriter, _ *http.Request) {
	ids := s.registry.IDs()
	resp := APIStreamsResponse{Streams: make([]APIStream, 0, len(ids))}
	for _, id := range ids {
		if stream, ok := s.registry.Get(id); ok {
			resp.Streams = append(resp.Streams, APIStream{ID: id, Count: stream.Count()})
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetStream returns id and count of a single stream
func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	stream, ok := s.stream(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, APIStream{ID: stream.ID(), Count: stream.Count()})
}

// handleStreamText returns materialized stream text as text/plain
func (s *Server) handleStreamText(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseOptions(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	stream, ok := s.stream(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Hoover-Lines", strconv.Itoa(stream.Count()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(stream.Materialize(opts))); err != nil {
		log.Printf("[WARN] failed to write stream %s: %v", stream.ID(), err)
	}
}

// handleCreateSnapshot archives the current materialization of a stream
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	opts, err := ParseOptions(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	stream, ok := s.stream(w, r)
	if !ok {
		return
	}

	snap := archive.Snapshot{Stream: stream.ID(), CreatedAt: time.Now(), Lines: stream.Count(),
		Index: opts.Index, Timestamp: opts.Timestamp, Text: stream.Materialize(opts)}
	id, err := s.archive.Save(snap)
	if err != nil {
		log.Printf("[ERROR] failed to archive stream %s: %v", stream.ID(), err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}
	snapshotsCreated.Inc()
	snap.ID = id
	snap.Text = ""
	log.Printf("[INFO] archived snapshot %d of %s, %d lines", id, stream.ID(), snap.Lines)
	s.writeJSON(w, http.StatusCreated, toAPISnapshot(snap))
}

// handleListSnapshots returns archived snapshots of a stream, newest first
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	// archived snapshots outlive streams, so an unknown id is not an error here
	snaps, err := s.archive.List(r.PathValue("id"), limit)
	if err != nil {
		log.Printf("[ERROR] failed to list snapshots: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load snapshots")
		return
	}
	resp := make([]APISnapshot, 0, len(snaps))
	for _, snap := range snaps {
		resp = append(resp, toAPISnapshot(snap))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetSnapshot returns a single snapshot with its text
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.archiveEnabled(w) {
		return
	}
	sid, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid snapshot ID")
		return
	}
	snap, err := s.archive.Get(sid)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		log.Printf("[ERROR] failed to get snapshot %d: %v", sid, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	s.writeJSON(w, http.StatusOK, toAPISnapshot(snap))
}

// handleStatus returns registry totals and a process readout
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := APIStatusResponse{
		Version:   s.version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Archive:   s.archive != nil,
		System:    collectSysInfo(s.archivePath),
		Timestamp: time.Now(),
	}
	for _, id := range s.registry.IDs() {
		if stream, ok := s.registry.Get(id); ok {
			resp.Streams++
			resp.Lines += stream.Count()
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSchema returns the JSON schema of the ingest payload
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	data, err := watch.SchemaJSON()
	if err != nil {
		log.Printf("[ERROR] failed to make schema: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to make schema")
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[WARN] failed to write schema: %v", err)
	}
}

// stream looks up the stream from the path, writing 404 when it is absent
func (s *Server) stream(w http.ResponseWriter, r *http.Request) (*logcache.Stream, bool) {
	id := r.PathValue("id")
	stream, ok := s.registry.Get(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "stream not found")
		return nil, false
	}
	return stream, true
}

func (s *Server) archiveEnabled(w http.ResponseWriter) bool {
	if s.archive == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "archive disabled")
		return false
	}
	return true
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
