// Package audit records processed-file events in Firestore. The client is an
// explicit handle with an Open/Close lifecycle; there is no package-level
// singleton, so tests substitute a fake recorder instead of resetting global
// state.
package audit

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	// eventCollection is the Firestore collection audit events land in.
	eventCollection = "file_events"

	// DisabledID is the sentinel record id returned when the audit backend
	// is administratively disabled. The store is never contacted.
	DisabledID = "audit_disabled"
)

// LogError describes a failed audit operation.
type LogError struct {
	Op  string
	Err error
}

func (e *LogError) Error() string {
	return fmt.Sprintf("audit %s: %v", e.Op, e.Err)
}

func (e *LogError) Unwrap() error { return e.Err }

// FileEvent is one durable record of a file's trip through the pipeline.
type FileEvent struct {
	Filename         string    `firestore:"filename" json:"filename"`
	FileType         string    `firestore:"file_type" json:"fileType"`
	OriginalBackedUp bool      `firestore:"original_backed_up" json:"originalBackedUp"`
	Sanitized        bool      `firestore:"sanitized" json:"sanitized"`
	FinalPath        string    `firestore:"final_path,omitempty" json:"finalPath,omitempty"`
	Error            string    `firestore:"error,omitempty" json:"error,omitempty"`
	Timestamp        time.Time `firestore:"timestamp" json:"timestamp"`
}

// Recorder appends audit events to Firestore.
type Recorder struct {
	client  *firestore.Client
	enabled bool
}

// Open creates a Firestore-backed recorder for the given project.
// credentialsFile may be empty, in which case Application Default Credentials
// are used.
func Open(ctx context.Context, projectID, credentialsFile string) (*Recorder, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, &LogError{Op: "open", Err: fmt.Errorf("failed to initialize Firebase app: %w", err)}
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, &LogError{Op: "open", Err: fmt.Errorf("failed to create Firestore client: %w", err)}
	}

	return &Recorder{client: client, enabled: true}, nil
}

// Disabled returns a recorder that never contacts a store. Record returns the
// DisabledID sentinel without error.
func Disabled() *Recorder {
	return &Recorder{enabled: false}
}

// Enabled reports whether the recorder has a live backend.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// Close releases the Firestore client. Safe to call on a disabled recorder.
func (r *Recorder) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Record appends one audit event and returns its document id. A disabled
// recorder returns DisabledID immediately.
func (r *Recorder) Record(ctx context.Context, event FileEvent) (string, error) {
	if !r.enabled {
		return DisabledID, nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ref, _, err := r.client.Collection(eventCollection).Add(ctx, event)
	if err != nil {
		return "", &LogError{Op: "record", Err: err}
	}
	return ref.ID, nil
}

// Recent returns up to limit audit events, newest first. A disabled recorder
// returns an empty slice without contacting anything.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*FileEvent, error) {
	if !r.enabled {
		return []*FileEvent{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	iter := r.client.Collection(eventCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)

	var events []*FileEvent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &LogError{Op: "recent", Err: fmt.Errorf("failed to iterate events: %w", err)}
		}

		var event FileEvent
		if err := doc.DataTo(&event); err != nil {
			return nil, &LogError{Op: "recent", Err: fmt.Errorf("failed to parse event: %w", err)}
		}
		events = append(events, &event)
	}

	return events, nil
}
