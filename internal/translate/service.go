package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/konnyaku/konnyaku/internal/inference"
	"github.com/konnyaku/konnyaku/internal/logger"
	"github.com/konnyaku/konnyaku/internal/modelstore"
)

const (
	// maxInputRunes bounds request text in code points, not bytes, so
	// Japanese input gets the same budget as English.
	maxInputRunes = 5000

	defaultMaxNewTokens = 512
)

// Config assembles a Service.
type Config struct {
	Store  *modelstore.Store
	Loader inference.Loader

	// MaxNewTokens bounds generation per request. Zero means the default.
	MaxNewTokens int

	Log logger.Logger
}

// Service is the translation façade: it validates requests, makes sure the
// model is on disk and loaded, and runs one generation session per request.
// All engine work is serialized; the model never sees two requests at once.
type Service struct {
	store  *modelstore.Store
	handle *inference.Handle
	maxNew int
	log    logger.Logger

	// mu serializes model loading and generation. Held for the full
	// duration of a translation so sessions never interleave.
	mu sync.Mutex
}

// New builds a Service around an unloaded engine handle.
func New(cfg Config) *Service {
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = defaultMaxNewTokens
	}
	if cfg.Log == nil {
		cfg.Log = logger.Default()
	}
	return &Service{
		store:  cfg.Store,
		handle: inference.NewHandle(cfg.Loader, cfg.Log),
		maxNew: cfg.MaxNewTokens,
		log:    cfg.Log,
	}
}

// Request is one translation to perform.
type Request struct {
	Text      string
	Direction Direction
}

// Result is a finished translation.
type Result struct {
	RequestID string
	Direction Direction
	Text      string
	Stats     inference.Stats
}

// Status is a non-blocking snapshot of the model lifecycle.
type Status struct {
	Downloaded bool
	State      inference.State

	// GPU reports whether the loaded model runs with GPU offload. False
	// until the model is loaded.
	GPU bool
}

// Loaded reports whether translations can run without a load first.
func (s Status) Loaded() bool { return s.State == inference.StateReady }

// Translate runs one request through the engine. Validation happens before
// any engine work, so malformed requests never trigger a download or load.
func (s *Service) Translate(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	log := s.log.With("request_id", id, "direction", req.Direction.String())

	s.mu.Lock()
	defer s.mu.Unlock()

	model, err := s.ensureLoaded(ctx)
	if err != nil {
		return Result{}, err
	}

	session, err := inference.NewSession(model, s.maxNew, log)
	if err != nil {
		return Result{}, err
	}
	defer session.Close()

	out, stats, err := session.Run(ctx, FormatPrompt(req.Direction, req.Text))
	if err != nil {
		log.Error("translation failed", "error", err)
		return Result{}, err
	}

	log.Info("translation complete",
		"prompt_tokens", stats.PromptTokens,
		"tokens_generated", stats.TokensGenerated,
		"duration", stats.Duration,
		"hit_token_limit", stats.HitTokenLimit)

	return Result{
		RequestID: id,
		Direction: req.Direction,
		Text:      out,
		Stats:     stats,
	}, nil
}

func validate(req Request) error {
	if _, err := ParseDirection(req.Direction.String()); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return newInvalidInputError("text is empty")
	}
	if n := utf8.RuneCountInString(req.Text); n > maxInputRunes {
		return newInvalidInputError(fmt.Sprintf("text is %d characters, limit is %d", n, maxInputRunes))
	}
	return nil
}

// ensureLoaded makes the model available end to end: on disk, then in
// memory. Callers hold s.mu.
func (s *Service) ensureLoaded(ctx context.Context) (inference.Model, error) {
	if m, err := s.handle.Model(); err == nil {
		return m, nil
	}
	path, err := s.store.EnsureAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.handle.Load(ctx, path); err != nil {
		return nil, err
	}
	return s.handle.Model()
}

// EnsureDownloaded fetches the model artifact without loading it.
func (s *Service) EnsureDownloaded(ctx context.Context) (string, error) {
	return s.store.EnsureAvailable(ctx)
}

// Initialize downloads and loads the model up front, for servers that want
// the first request to be fast.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ensureLoaded(ctx)
	return err
}

// Status reports the model lifecycle without blocking on in-flight work.
func (s *Service) Status() Status {
	st := Status{
		Downloaded: s.store.Downloaded(),
		State:      s.handle.State(),
	}
	if m, err := s.handle.Model(); err == nil {
		if g, ok := m.(interface{ UsingGPU() bool }); ok {
			st.GPU = g.UsingGPU()
		}
	}
	return st
}

// Model describes the model artifact this service translates with.
func (s *Service) Model() modelstore.Descriptor {
	return s.store.Descriptor()
}

// Directions lists the supported translation directions.
func (s *Service) Directions() []Direction {
	return Directions()
}

// Close releases the loaded model, if any.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle.Close()
}
