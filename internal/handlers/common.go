package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/images"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
	"github.com/lehigh-university-libraries/textsnap/internal/pipeline"
)

// MaxWait caps how long a request may block with ?wait=
const MaxWait = 2 * time.Minute

// Pipeline is the part of *pipeline.Pipeline the handlers drive
type Pipeline interface {
	RequestFromSource(src images.Source) (uint64, error)
	Retry() (uint64, error)
	Reset()
	State() models.RequestState
	Wait(ctx context.Context, generation uint64) (models.RequestState, error)
}

type Handler struct {
	pipeline Pipeline
	camera   images.Source
}

type requestResponse struct {
	Generation uint64              `json:"generation"`
	State      models.RequestState `json:"state"`
}

// New returns handlers bound to p. camera may be nil when no capture device is configured.
func New(p Pipeline, camera images.Source) *Handler {
	return &Handler{pipeline: p, camera: camera}
}

// Routes registers every endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/requests", h.HandleUpload)
	mux.HandleFunc("/api/requests/camera", h.HandleCamera)
	mux.HandleFunc("/api/state", h.HandleState)
	mux.HandleFunc("/api/reset", h.HandleReset)
	mux.HandleFunc("/api/retry", h.HandleRetry)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// started answers a newly issued request, optionally waiting for it to settle
func (h *Handler) started(w http.ResponseWriter, r *http.Request, generation uint64) {
	waitFor, err := parseWait(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if waitFor == 0 {
		h.writeJSON(w, http.StatusAccepted, requestResponse{Generation: generation, State: h.pipeline.State()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), waitFor)
	defer cancel()
	state, err := h.pipeline.Wait(ctx, generation)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, requestResponse{Generation: generation, State: state})
	case errors.Is(err, pipeline.ErrSuperseded):
		h.writeJSON(w, http.StatusConflict, requestResponse{Generation: generation, State: state})
	default:
		// still running when the wait expired
		h.writeJSON(w, http.StatusAccepted, requestResponse{Generation: generation, State: state})
	}
}

// parseWait reads ?wait=<duration> (or a bare number of seconds)
func parseWait(r *http.Request) (time.Duration, error) {
	v := r.URL.Query().Get("wait")
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		secs, serr := strconv.Atoi(v)
		if serr != nil {
			return 0, err
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		d = 0
	}
	if d > MaxWait {
		d = MaxWait
	}
	return d, nil
}
