package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/lehigh-university-libraries/textsnap/internal/images"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

const (
	DefaultWorkers   = 4
	subscriberBuffer = 16
)

var (
	// ErrSuperseded is returned by Wait when a newer request or a reset replaced the awaited one
	ErrSuperseded = errors.New("request superseded")
	ErrClosed     = errors.New("pipeline closed")
	ErrNoRequest  = errors.New("no previous request to retry")
)

// Decoder turns an ImageHandle into a NormalizedImage
type Decoder interface {
	Decode(ctx context.Context, handle models.ImageHandle) (*models.NormalizedImage, error)
}

// Recognizer runs OCR on a NormalizedImage and always returns one result
type Recognizer interface {
	Recognize(ctx context.Context, img *models.NormalizedImage) models.RecognitionResult
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithWorkers sets the background pool size
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

type request struct {
	generation uint64
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	assets     *requestAssets
}

// Pipeline coordinates acquisition, normalization and recognition for one
// caller. Exactly one request is live at a time; a new request or Reset
// supersedes the previous one and its late results are dropped.
type Pipeline struct {
	assets     AssetManager
	decoder    Decoder
	recognizer Recognizer
	workers    int
	pool       *ants.Pool

	mu          sync.Mutex
	generation  uint64
	state       models.RequestState
	current     *request
	lastSource  images.Source
	changed     chan struct{}
	subscribers map[int]chan models.RequestState
	nextSub     int
	closed      bool
}

func New(assets AssetManager, decoder Decoder, recognizer Recognizer, opts ...Option) (*Pipeline, error) {
	if assets == nil || decoder == nil || recognizer == nil {
		return nil, fmt.Errorf("pipeline requires an asset manager, decoder and recognizer")
	}
	p := &Pipeline{
		assets:      assets,
		decoder:     decoder,
		recognizer:  recognizer,
		workers:     DefaultWorkers,
		changed:     make(chan struct{}),
		subscribers: make(map[int]chan models.RequestState),
	}
	for _, opt := range opts {
		opt(p)
	}

	pool, err := ants.NewPool(p.workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v interface{}) {
			slog.Error("Pipeline worker panicked", "panic", v)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	p.pool = pool
	p.state = models.RequestState{Phase: models.PhaseIdle, UpdatedAt: time.Now()}
	return p, nil
}

// RequestFromSource starts a new request and returns its generation
func (p *Pipeline) RequestFromSource(src images.Source) (uint64, error) {
	if src == nil {
		return 0, fmt.Errorf("source is required")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	p.supersedeLocked()
	p.generation++
	ctx, cancel := context.WithCancel(context.Background())
	req := &request{
		generation: p.generation,
		id:         uuid.NewString(),
		ctx:        ctx,
		cancel:     cancel,
		assets:     newRequestAssets(p.assets, p.generation),
	}
	p.current = req
	p.lastSource = src
	p.setStateLocked(models.RequestState{
		Phase:      models.PhaseAwaitingSource,
		Generation: req.generation,
		RequestID:  req.id,
		Origin:     src.Origin(),
	})
	p.mu.Unlock()

	slog.Info("Request started", "generation", req.generation, "request_id", req.id, "origin", src.Origin())

	p.schedule(req, src)
	return req.generation, nil
}

// schedule never blocks the caller. Workers held by superseded requests that
// ignore cancellation can exhaust the pool; the live request then gets its own
// goroutine.
func (p *Pipeline) schedule(req *request, src images.Source) {
	err := p.pool.Submit(func() { p.run(req, src) })
	switch {
	case err == nil:
	case errors.Is(err, ants.ErrPoolOverload):
		slog.Warn("Worker pool exhausted by superseded requests", "generation", req.generation, "running", p.pool.Running())
		go p.run(req, src)
	default:
		p.complete(req, models.Failure(models.UnknownError, "failed to schedule request: "+err.Error()))
	}
}

// Retry re-issues the most recent source as a new request
func (p *Pipeline) Retry() (uint64, error) {
	p.mu.Lock()
	src := p.lastSource
	p.mu.Unlock()
	if src == nil {
		return 0, ErrNoRequest
	}
	return p.RequestFromSource(src)
}

// Reset cancels in-flight work, releases temp assets and returns to Idle.
// The sweep runs under the lock so it cannot touch files of a newer request.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.supersedeLocked()
	if err := p.assets.ReleaseAll(); err != nil {
		slog.Error("Failed to release temp assets on reset", "err", err)
	}
	p.generation++
	generation := p.generation
	p.current = nil
	p.setStateLocked(models.RequestState{Phase: models.PhaseIdle, Generation: generation})
	p.mu.Unlock()

	slog.Info("Pipeline reset", "generation", generation)
}

// Close resets the pipeline, stops the worker pool and closes subscriptions
func (p *Pipeline) Close() {
	p.Reset()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, id)
	}
	p.mu.Unlock()

	p.pool.Release()
}

func (p *Pipeline) State() models.RequestState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyState(p.state)
}

// Subscribe delivers every transition; a slow subscriber loses the oldest
// buffered states but always receives the latest one.
func (p *Pipeline) Subscribe() (<-chan models.RequestState, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan models.RequestState, subscriberBuffer)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = ch
	ch <- copyState(p.state)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subscribers[id]; ok {
				delete(p.subscribers, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until the given generation completes or is superseded
func (p *Pipeline) Wait(ctx context.Context, generation uint64) (models.RequestState, error) {
	for {
		p.mu.Lock()
		state := copyState(p.state)
		changed := p.changed
		p.mu.Unlock()

		switch {
		case state.Generation > generation:
			return state, ErrSuperseded
		case state.Generation == generation && state.Terminal():
			return state, nil
		case state.Generation == generation && state.Phase == models.PhaseIdle:
			return state, ErrNoRequest
		case state.Generation < generation:
			return state, fmt.Errorf("generation %d has not been issued", generation)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

func (p *Pipeline) run(req *request, src images.Source) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Request panicked", "generation", req.generation, "panic", r)
			p.complete(req, models.Failure(models.UnknownError, fmt.Sprintf("internal error: %v", r)))
		}
	}()

	handle, err := src.Acquire(req.ctx, req.assets)
	if err != nil {
		p.complete(req, models.FailureFromError(err))
		return
	}
	if !p.transition(req, models.PhaseNormalizing, nil) {
		return
	}

	img, err := p.decoder.Decode(req.ctx, handle)
	if err != nil {
		p.complete(req, models.FailureFromError(err))
		return
	}
	if !p.transition(req, models.PhaseRecognizing, func(s *models.RequestState) {
		s.Width = img.Width
		s.Height = img.Height
	}) {
		return
	}

	result := p.recognizer.Recognize(req.ctx, img)
	p.complete(req, result)
}

// transition applies phase if req is still current
func (p *Pipeline) transition(req *request, phase models.Phase, mutate func(*models.RequestState)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.generation != p.generation {
		slog.Debug("Dropping stale transition", "generation", req.generation, "current", p.generation, "phase", phase)
		return false
	}
	next := p.state
	next.Phase = phase
	if mutate != nil {
		mutate(&next)
	}
	p.setStateLocked(next)
	return true
}

// complete releases the request's temp assets before Completed becomes visible
func (p *Pipeline) complete(req *request, result models.RecognitionResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req.assets.close()
	req.cancel()

	if req.generation != p.generation {
		slog.Warn("Discarding result of superseded request", "generation", req.generation, "current", p.generation, "failed", result.Failed)
		return
	}

	next := p.state
	next.Phase = models.PhaseCompleted
	next.Result = &result
	p.setStateLocked(next)

	if result.Failed {
		slog.Info("Request failed", "generation", req.generation, "request_id", req.id, "kind", result.Kind, "message", result.Message)
	} else {
		slog.Info("Request completed", "generation", req.generation, "request_id", req.id, "length", len(result.Text))
	}
}

func (p *Pipeline) supersedeLocked() {
	if p.current == nil {
		return
	}
	p.current.cancel()
	p.current.assets.close()
	slog.Debug("Superseded request", "generation", p.current.generation)
}

func (p *Pipeline) setStateLocked(s models.RequestState) {
	s.UpdatedAt = time.Now()
	p.state = s
	slog.Debug("State transition", "generation", s.Generation, "phase", s.Phase)

	close(p.changed)
	p.changed = make(chan struct{})

	for _, ch := range p.subscribers {
		publish(ch, copyState(s))
	}
}

func publish(ch chan models.RequestState, s models.RequestState) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
		slog.Warn("Dropping state notification", "generation", s.Generation, "phase", s.Phase)
	}
}

func copyState(s models.RequestState) models.RequestState {
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}
