// Package handlers implements the HTTP surface: liveness/status probes,
// on-demand sanitize and backup operations, and audit-event access.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/commons-systems/cleanslate/internal/audit"
	"github.com/commons-systems/cleanslate/internal/backup"
	"github.com/commons-systems/cleanslate/internal/scrub"
	"github.com/commons-systems/cleanslate/internal/streaming"
)

// Scrubber is the subset of the exiftool adapter the handlers need.
type Scrubber interface {
	Strip(ctx context.Context, path string) (*scrub.Result, error)
	Read(ctx context.Context, path string, grouped bool) (map[string]any, error)
}

// Uploader is the subset of the rclone adapter the handlers need.
type Uploader interface {
	Copy(ctx context.Context, localPath, remoteDest string) (*backup.Result, error)
	Link(ctx context.Context, remotePath string) (string, error)
}

// Auditor reads back recorded audit events.
type Auditor interface {
	Recent(ctx context.Context, limit int) ([]*audit.FileEvent, error)
}

// API carries the collaborators shared by all handlers.
type API struct {
	scrubber     Scrubber
	uploader     Uploader
	auditor      Auditor
	hub          *streaming.Hub
	remoteDest   string
	watchDir     string
	outputDir    string
	auditEnabled bool
	version      string
	startedAt    time.Time
}

// Options configures a new API.
type Options struct {
	Scrubber     Scrubber
	Uploader     Uploader
	Auditor      Auditor
	Hub          *streaming.Hub
	RemoteDest   string
	WatchDir     string
	OutputDir    string
	AuditEnabled bool
	Version      string
}

// NewAPI creates the handler set.
func NewAPI(opts Options) *API {
	return &API{
		scrubber:     opts.Scrubber,
		uploader:     opts.Uploader,
		auditor:      opts.Auditor,
		hub:          opts.Hub,
		remoteDest:   opts.RemoteDest,
		watchDir:     opts.WatchDir,
		outputDir:    opts.OutputDir,
		auditEnabled: opts.AuditEnabled,
		version:      opts.Version,
		startedAt:    time.Now(),
	}
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /status.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       a.version,
		"uptimeSeconds": int64(time.Since(a.startedAt).Seconds()),
		"watchDir":      a.watchDir,
		"outputDir":     a.outputDir,
		"remote":        a.remoteDest,
		"auditEnabled":  a.auditEnabled,
	})
}

// Events handles GET /api/events: recent audit records, newest first.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := a.auditor.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: Failed to fetch audit events: %v", err)
		http.Error(w, "Failed to fetch events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*audit.FileEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// EventsStream handles GET /api/events/stream: an SSE feed of live pipeline
// outcomes.
func (a *API) EventsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := streaming.NewClient()
	a.hub.Register(client)
	defer a.hub.Unregister(client)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, open := <-client.Events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("ERROR: Failed to encode stream event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}
