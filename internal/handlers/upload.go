package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/textsnap/internal/images"
)

// HandleUpload starts a gallery request from a multipart file or a JSON image_url
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	// Handle file upload
	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(request.ImageURL, "http://") && !strings.HasPrefix(request.ImageURL, "https://") {
		h.writeError(w, "image_url must be an http(s) URL", http.StatusBadRequest)
		return
	}

	h.start(w, r, images.NewGallery(images.NewURLPicker(request.ImageURL)))
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, images.MaxDownloadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Validate file size
	if len(fileData) > images.MaxDownloadBytes {
		h.writeError(w, "File too large (max 10MB)", http.StatusRequestEntityTooLarge)
		return
	}

	h.start(w, r, images.NewGallery(images.BytesPicker{
		Data:     fileData,
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
	}))
}

// HandleCamera starts a camera capture request
func (h *Handler) HandleCamera(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.camera == nil {
		h.writeError(w, "No camera configured", http.StatusNotImplemented)
		return
	}
	h.start(w, r, h.camera)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request, src images.Source) {
	generation, err := h.pipeline.RequestFromSource(src)
	if err != nil {
		h.writeError(w, "Failed to start request: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.started(w, r, generation)
}
