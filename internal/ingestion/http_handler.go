package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evchart/evchart/internal/domain"
)

// Handler exposes ingestion as an HTTP trigger endpoint. The queue/event
// plumbing in front of it is a boundary collaborator; this handler only
// decodes an already-resolved upload event and hands it to the service.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with a POST endpoint.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	uploadID := strings.TrimSpace(r.FormValue("uploadId"))
	if uploadID == "" {
		http.Error(w, "uploadId is required", http.StatusBadRequest)
		return
	}

	moduleID, err := strconv.Atoi(strings.TrimSpace(r.FormValue("moduleId")))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid module id: %v", err), http.StatusBadRequest)
		return
	}

	fileType := strings.TrimSpace(r.FormValue("fileType"))
	if fileType == "" {
		fileType = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}

	flags := domain.FlagSet{}
	for _, flag := range strings.Split(r.FormValue("flags"), ",") {
		if trimmed := strings.TrimSpace(flag); trimmed != "" {
			flags[domain.FeatureFlag(trimmed)] = struct{}{}
		}
	}

	body, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(r.Context(), Request{
		UploadID: uploadID,
		ModuleID: moduleID,
		FileType: fileType,
		Body:     body,
		Flags:    flags,
	})
	if err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			http.Error(w, storageErr.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
