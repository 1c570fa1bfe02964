package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/textsnap/internal/pipeline"
)

// HandleState returns the current state. With ?generation=N&wait=D it blocks
// until that generation completes, is superseded, or D elapses.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	waitFor, err := parseWait(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	gen := r.URL.Query().Get("generation")
	if gen == "" || waitFor == 0 {
		h.writeJSON(w, http.StatusOK, h.pipeline.State())
		return
	}

	generation, err := strconv.ParseUint(gen, 10, 64)
	if err != nil {
		h.writeError(w, "Invalid generation: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), waitFor)
	defer cancel()
	state, err := h.pipeline.Wait(ctx, generation)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, pipeline.ErrSuperseded) {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.pipeline.Reset()
	h.writeJSON(w, http.StatusOK, h.pipeline.State())
}

// HandleRetry re-issues the most recent source as a new request
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	generation, err := h.pipeline.Retry()
	if errors.Is(err, pipeline.ErrNoRequest) {
		h.writeError(w, "Nothing to retry", http.StatusConflict)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to retry: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.started(w, r, generation)
}
