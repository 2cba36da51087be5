// Package scrub strips embedded metadata from files using the local exiftool
// binary.
package scrub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/commons-systems/cleanslate/internal/filter"
)

// ErrUnsupportedExtension is wrapped into the ScrubError when a file's suffix
// is outside the supported set.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// ScrubError describes a failed metadata operation.
type ScrubError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ScrubError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("scrub %s: %v: %s (exit code %d)", e.Path, e.Err, e.Stderr, e.ExitCode)
	}
	return fmt.Sprintf("scrub %s: %v", e.Path, e.Err)
}

func (e *ScrubError) Unwrap() error { return e.Err }

// Scrubber shells out to exiftool. The zero value is not usable; construct
// with New.
type Scrubber struct {
	binaryPath string
}

// New creates a Scrubber that expects exiftool on PATH.
func New() *Scrubber {
	return &Scrubber{binaryPath: "exiftool"}
}

// Result reports a successful strip.
type Result struct {
	Path     string
	FileSize int64
	Output   string
}

// Strip removes all embedded metadata from the file in place
// (exiftool -all= -overwrite_original). The file must exist, be a regular
// file, and carry a supported extension.
func (s *Scrubber) Strip(ctx context.Context, path string) (*Result, error) {
	if err := s.validate(path); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.binaryPath, "-all=", "-overwrite_original", path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, s.runError(path, err, &stderr)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ScrubError{Path: path, Err: fmt.Errorf("stat after strip: %w", err)}
	}

	return &Result{
		Path:     path,
		FileSize: info.Size(),
		Output:   strings.TrimSpace(stdout.String()),
	}, nil
}

// Read returns the file's metadata as a flat key -> value map without
// modifying it (exiftool -json). When grouped is true keys are prefixed with
// their category tag (exiftool -G), e.g. "EXIF:Make". The tool's own
// SourceFile bookkeeping key is stripped from the result.
func (s *Scrubber) Read(ctx context.Context, path string, grouped bool) (map[string]any, error) {
	if err := s.validate(path); err != nil {
		return nil, err
	}

	args := []string{"-json"}
	if grouped {
		args = append(args, "-G")
	}
	args = append(args, path)
	cmd := exec.CommandContext(ctx, s.binaryPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, s.runError(path, err, &stderr)
	}

	var parsed []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return nil, &ScrubError{Path: path, Err: fmt.Errorf("failed to parse exiftool output: %w", err)}
	}

	if len(parsed) == 0 {
		return map[string]any{}, nil
	}

	metadata := parsed[0]
	delete(metadata, "SourceFile")
	return metadata, nil
}

func (s *Scrubber) validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s: %w", path, os.ErrNotExist)
		}
		return &ScrubError{Path: path, Err: err}
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return &ScrubError{Path: path, Err: errors.New("path is not a regular file")}
	}
	if !filter.SupportedExtension(path) {
		return &ScrubError{Path: path, Err: ErrUnsupportedExtension}
	}
	return nil
}

func (s *Scrubber) runError(path string, err error, stderr *bytes.Buffer) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "exiftool command failed"
		}
		return &ScrubError{
			Path:     path,
			ExitCode: exitErr.ExitCode(),
			Stderr:   msg,
			Err:      errors.New("exiftool exited with an error"),
		}
	}
	// Binary missing from PATH, context cancelled, etc.
	return &ScrubError{Path: path, Err: fmt.Errorf("failed to run exiftool: %w", err)}
}
