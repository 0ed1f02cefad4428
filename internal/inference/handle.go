package inference

import (
	"context"
	"fmt"
	"sync"

	"github.com/konnyaku/konnyaku/internal/logger"
)

// State is the lifecycle state of the engine handle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle owns the loaded model for the process lifetime. Load runs at most
// once successfully: a call while Ready is a no-op, concurrent calls while
// Loading coalesce onto the single in-flight load, and a Failed handle
// re-enters Loading only on the next explicit Load call.
type Handle struct {
	loader Loader
	log    logger.Logger

	mu       sync.Mutex
	state    State
	model    Model
	inflight chan struct{}
}

// NewHandle creates an unloaded Handle that loads through loader.
func NewHandle(loader Loader, log logger.Logger) *Handle {
	if log == nil {
		log = logger.Default()
	}
	return &Handle{loader: loader, log: log}
}

// State returns the current lifecycle state. Non-blocking.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Ready reports whether the model is loaded. Non-blocking.
func (h *Handle) Ready() bool {
	return h.State() == StateReady
}

// Load loads the model at path. Safe to call from multiple goroutines; only
// one underlying load ever executes at a time.
func (h *Handle) Load(ctx context.Context, path string) error {
	h.mu.Lock()
	switch h.state {
	case StateReady:
		h.mu.Unlock()
		return nil

	case StateLoading:
		done := h.inflight
		h.mu.Unlock()
		select {
		case <-done:
			// Re-check: the in-flight load may have failed.
			h.mu.Lock()
			state := h.state
			h.mu.Unlock()
			if state == StateReady {
				return nil
			}
			return newLoadError("model load failed in concurrent caller")
		case <-ctx.Done():
			return ctx.Err()
		}

	default: // StateUnloaded, StateFailed
		h.inflight = make(chan struct{})
		h.state = StateLoading
		done := h.inflight
		h.mu.Unlock()

		h.log.Info("loading model", "path", path)
		model, err := h.safeLoad(path)

		h.mu.Lock()
		if err != nil {
			h.state = StateFailed
			h.log.Error("model load failed", "path", path, "error", err)
		} else {
			h.model = model
			h.state = StateReady
			h.log.Info("model ready", "path", path, "context_size", model.ContextSize())
		}
		close(done)
		h.mu.Unlock()

		if err != nil {
			return newLoadError(fmt.Sprintf("load model: %v", err))
		}
		return nil
	}
}

// Model returns the loaded model. Fails unless the handle is Ready.
func (h *Handle) Model() (Model, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateReady {
		return nil, newLoadError(fmt.Sprintf("model not loaded (state %v)", h.state))
	}
	return h.model, nil
}

// Close releases the loaded model. Only called at process shutdown.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model == nil {
		return nil
	}
	err := h.model.Close()
	h.model = nil
	h.state = StateUnloaded
	return err
}

func (h *Handle) safeLoad(path string) (m Model, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Load: %v", rec)
		}
	}()
	return h.loader.Load(path)
}
