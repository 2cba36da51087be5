// Package pipeline drives one file through the fixed ingestion sequence:
// remote backup, metadata sanitization, conflict-safe relocation, audit
// record. Stage failures are independent and captured into the outcome; the
// pipeline itself never fails.
package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/commons-systems/cleanslate/internal/audit"
	"github.com/commons-systems/cleanslate/internal/backup"
	"github.com/commons-systems/cleanslate/internal/conflict"
	"github.com/commons-systems/cleanslate/internal/scrub"
	"github.com/commons-systems/cleanslate/internal/streaming"
)

// Uploader copies a local file to a remote destination.
type Uploader interface {
	Copy(ctx context.Context, localPath, remoteDest string) (*backup.Result, error)
}

// Scrubber strips embedded metadata from a file in place.
type Scrubber interface {
	Strip(ctx context.Context, path string) (*scrub.Result, error)
}

// Recorder appends one audit event per processed file.
type Recorder interface {
	Record(ctx context.Context, event audit.FileEvent) (string, error)
}

// Outcome is the immutable result of processing one file.
type Outcome struct {
	Filename    string
	FileType    string
	BackedUp    bool
	Sanitized   bool
	FinalPath   string   // empty unless relocation succeeded
	Errors      []string // stage failures in stage order
	ProcessedAt time.Time
}

// ErrorMessage joins all stage failures into a single string for the audit
// record. Empty when every stage succeeded.
func (o *Outcome) ErrorMessage() string {
	return strings.Join(o.Errors, "; ")
}

// Pipeline orchestrates the collaborators for one watcher or API instance.
type Pipeline struct {
	uploader   Uploader
	scrubber   Scrubber
	recorder   Recorder
	hub        *streaming.Hub // optional
	outputDir  string
	remoteDest string

	// mu serializes conflict probing and the subsequent move so concurrent
	// callers sharing this pipeline cannot resolve the same free name.
	mu sync.Mutex
}

// New creates a pipeline bound to an output directory and remote destination.
func New(uploader Uploader, scrubber Scrubber, recorder Recorder, outputDir, remoteDest string) *Pipeline {
	return &Pipeline{
		uploader:   uploader,
		scrubber:   scrubber,
		recorder:   recorder,
		outputDir:  outputDir,
		remoteDest: remoteDest,
	}
}

// SetHub attaches a streaming hub; processed outcomes are broadcast to it.
func (p *Pipeline) SetHub(hub *streaming.Hub) {
	p.hub = hub
}

// Process runs the full stage sequence for one file. It never returns an
// error: every stage failure is folded into the outcome, and an audit-record
// failure is reported on the diagnostic log only.
func (p *Pipeline) Process(ctx context.Context, path string) *Outcome {
	outcome := &Outcome{
		Filename:    filepath.Base(path),
		FileType:    strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		ProcessedAt: time.Now(),
	}

	// Stage 1: backup. Failure must not block sanitization; the file is
	// still made safe to keep even if no remote copy exists.
	if _, err := p.uploader.Copy(ctx, path, p.remoteDest); err != nil {
		outcome.Errors = append(outcome.Errors, "backup failed: "+err.Error())
		log.Printf("ERROR: Backup failed for %s: %v", outcome.Filename, err)
	} else {
		outcome.BackedUp = true
	}

	// Stage 2: sanitize. Failure blocks relocation: a file with its
	// metadata intact must not land in the clean output directory.
	if _, err := p.scrubber.Strip(ctx, path); err != nil {
		outcome.Errors = append(outcome.Errors, "sanitization failed: "+err.Error())
		log.Printf("ERROR: Sanitization failed for %s: %v", outcome.Filename, err)
	} else {
		outcome.Sanitized = true
	}

	// Stage 3: relocate, only once sanitized.
	if outcome.Sanitized {
		if dest, err := p.relocate(path, outcome.Filename); err != nil {
			outcome.Errors = append(outcome.Errors, "relocation failed: "+err.Error())
			log.Printf("ERROR: Relocation failed for %s: %v", outcome.Filename, err)
		} else {
			outcome.FinalPath = dest
		}
	}

	// Stage 4: audit. Best-effort and last, so a logging failure can never
	// mask a processing result already computed.
	if _, err := p.recorder.Record(ctx, audit.FileEvent{
		Filename:         outcome.Filename,
		FileType:         outcome.FileType,
		OriginalBackedUp: outcome.BackedUp,
		Sanitized:        outcome.Sanitized,
		FinalPath:        outcome.FinalPath,
		Error:            outcome.ErrorMessage(),
		Timestamp:        outcome.ProcessedAt,
	}); err != nil {
		log.Printf("ERROR: Failed to record audit event for %s: %v", outcome.Filename, err)
	}

	if p.hub != nil {
		p.hub.Broadcast(streaming.Event{
			Type: streaming.EventTypeOutcome,
			Data: streaming.OutcomeEvent{
				Filename:  outcome.Filename,
				FileType:  outcome.FileType,
				BackedUp:  outcome.BackedUp,
				Sanitized: outcome.Sanitized,
				FinalPath: outcome.FinalPath,
				Errors:    outcome.Errors,
			},
		})
	}

	return outcome
}

// relocate resolves a collision-free destination and moves the file there.
// Probe and move run under the pipeline mutex; Resolve alone does not reserve
// the name.
func (p *Pipeline) relocate(path, filename string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dest, err := conflict.Resolve(p.outputDir, filename)
	if err != nil {
		return "", err
	}
	if err := moveFile(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// moveFile renames src to dst, falling back to copy-and-remove when the two
// paths are on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
