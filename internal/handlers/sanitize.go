package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/commons-systems/cleanslate/internal/backup"
	"github.com/commons-systems/cleanslate/internal/scrub"
)

const maxUploadBytes = 512 << 20

// SanitizeResponse reports the outcome of a one-shot sanitize request.
type SanitizeResponse struct {
	Success        bool           `json:"success"`
	Filename       string         `json:"filename"`
	FileSize       int64          `json:"fileSize"`
	MetadataBefore map[string]any `json:"metadataBefore"`
	MetadataAfter  map[string]any `json:"metadataAfter"`
	RemovedKeys    []string       `json:"removedKeys"`
	RemotePath     string         `json:"remotePath,omitempty"`
	ShareLink      string         `json:"shareLink,omitempty"`
	Warning        string         `json:"warning,omitempty"`
}

// Sanitize handles POST /sanitize: accepts a multipart upload, strips its
// metadata, and backs up the sanitized copy to the remote.
func (a *API) Sanitize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tempPath := filepath.Join(os.TempDir(), uuid.New().String()+"_"+filepath.Base(header.Filename))
	dst, err := os.Create(tempPath)
	if err != nil {
		log.Printf("ERROR: Failed to create temp file: %v", err)
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(tempPath)
		log.Printf("ERROR: Failed to write upload: %v", err)
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	dst.Close()
	defer os.Remove(tempPath)

	before, err := a.scrubber.Read(r.Context(), tempPath, true)
	if err != nil {
		writeScrubError(w, err)
		return
	}

	result, err := a.scrubber.Strip(r.Context(), tempPath)
	if err != nil {
		writeScrubError(w, err)
		return
	}

	after, err := a.scrubber.Read(r.Context(), tempPath, true)
	if err != nil {
		writeScrubError(w, err)
		return
	}

	resp := SanitizeResponse{
		Success:        true,
		Filename:       filepath.Base(header.Filename),
		FileSize:       result.FileSize,
		MetadataBefore: before,
		MetadataAfter:  after,
		RemovedKeys:    removedKeys(before, after),
	}

	if upload, err := a.uploader.Copy(r.Context(), tempPath, a.remoteDest); err != nil {
		resp.Warning = fmt.Sprintf("backup failed: %v", err)
	} else {
		resp.RemotePath = upload.Remote
		if link, err := a.uploader.Link(r.Context(), upload.Remote); err != nil {
			resp.Warning = fmt.Sprintf("link failed: %v", err)
		} else {
			resp.ShareLink = link
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// BackupRequest is the body accepted by POST /backup.
type BackupRequest struct {
	Path   string `json:"path"`
	Remote string `json:"remote,omitempty"`
}

// BackupResponse reports a completed on-demand backup.
type BackupResponse struct {
	Path       string `json:"path"`
	RemotePath string `json:"remotePath"`
	ShareLink  string `json:"shareLink,omitempty"`
}

// Backup handles POST /backup: copies an existing local file to the remote.
func (a *API) Backup(w http.ResponseWriter, r *http.Request) {
	var req BackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "Missing path", http.StatusBadRequest)
		return
	}

	dest := req.Remote
	if dest == "" {
		dest = a.remoteDest
	}

	result, err := a.uploader.Copy(r.Context(), req.Path, dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		var uploadErr *backup.UploadError
		if errors.As(err, &uploadErr) {
			log.Printf("ERROR: Backup of %s failed: %v", req.Path, err)
			http.Error(w, "Backup failed", http.StatusBadGateway)
			return
		}
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	resp := BackupResponse{Path: result.Path, RemotePath: result.Remote}
	if link, err := a.uploader.Link(r.Context(), result.Remote); err == nil {
		resp.ShareLink = link
	}
	writeJSON(w, http.StatusOK, resp)
}

// removedKeys returns the metadata keys present before scrubbing but absent
// after, sorted for stable output.
func removedKeys(before, after map[string]any) []string {
	removed := make([]string, 0)
	for key := range before {
		if _, kept := after[key]; !kept {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	return removed
}

func writeScrubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scrub.ErrUnsupportedExtension):
		http.Error(w, "Unsupported file type", http.StatusBadRequest)
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "File not found", http.StatusNotFound)
	default:
		log.Printf("ERROR: Sanitize failed: %v", err)
		http.Error(w, "Sanitization failed", http.StatusBadGateway)
	}
}
