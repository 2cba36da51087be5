// Package backup copies files to a remote store using the local rclone
// binary and can mint shareable links for already-uploaded paths.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// UploadError describes a failed rclone invocation.
type UploadError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *UploadError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("backup %s: %v: %s (exit code %d)", e.Path, e.Err, e.Stderr, e.ExitCode)
	}
	return fmt.Sprintf("backup %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Uploader shells out to rclone. Construct with New.
type Uploader struct {
	binaryPath string
}

// New creates an Uploader that expects rclone on PATH.
func New() *Uploader {
	return &Uploader{binaryPath: "rclone"}
}

// Result reports a successful copy.
type Result struct {
	Path      string
	Remote    string
	Output    []string
	JSONLines []map[string]any // nil when output is not line-delimited JSON
}

// Copy uploads localPath to the rclone destination remoteDest
// (e.g. "gdrive:backups"). A missing local file wraps fs.ErrNotExist so
// callers can map it to a not-found condition.
func (u *Uploader) Copy(ctx context.Context, localPath, remoteDest string) (*Result, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local file not found: %s: %w", localPath, os.ErrNotExist)
		}
		return nil, &UploadError{Path: localPath, Err: err}
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return nil, &UploadError{Path: localPath, Err: errors.New("path is not a regular file")}
	}

	cmd := exec.CommandContext(ctx, u.binaryPath, "copy", localPath, remoteDest)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, u.runError(localPath, err, &stderr)
	}

	result := &Result{
		Path:   localPath,
		Remote: remoteDest,
		Output: splitLines(stdout.String()),
	}
	result.JSONLines = parseJSONLines(result.Output)
	return result, nil
}

// Link asks the remote for a shareable URL for remotePath (rclone link).
func (u *Uploader) Link(ctx context.Context, remotePath string) (string, error) {
	cmd := exec.CommandContext(ctx, u.binaryPath, "link", remotePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", u.runError(remotePath, err, &stderr)
	}

	link := strings.TrimSpace(stdout.String())
	if link == "" {
		return "", &UploadError{Path: remotePath, Err: errors.New("rclone link returned empty output")}
	}
	return link, nil
}

func (u *Uploader) runError(path string, err error, stderr *bytes.Buffer) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "rclone command failed"
		}
		return &UploadError{
			Path:     path,
			ExitCode: exitErr.ExitCode(),
			Stderr:   msg,
			Err:      errors.New("rclone exited with an error"),
		}
	}
	return &UploadError{Path: path, Err: fmt.Errorf("failed to run rclone: %w", err)}
}

func splitLines(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// parseJSONLines decodes each output line as JSON. rclone emits plain text
// for copy, so a single unparsable line means no JSON at all.
func parseJSONLines(lines []string) []map[string]any {
	if len(lines) == 0 {
		return nil
	}
	parsed := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil
		}
		parsed = append(parsed, obj)
	}
	return parsed
}
