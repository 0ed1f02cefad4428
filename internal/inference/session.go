package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/konnyaku/konnyaku/internal/logger"
)

// Stats describes one completed generation.
type Stats struct {
	PromptTokens    int
	TokensGenerated int
	Duration        time.Duration
	HitTokenLimit   bool
}

// Session drives one request through the generation loop. Each session owns
// a fresh execution context and a decode buffer; neither is ever shared with
// or reused by another request.
type Session struct {
	model  Model
	sc     SessionContext
	dec    StreamDecoder
	maxNew int
	log    logger.Logger
}

// NewSession creates a session with its own execution context. maxNewTokens
// bounds generation; reaching the bound is not an error.
func NewSession(model Model, maxNewTokens int, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Default()
	}
	sc, err := safeNewContext(model)
	if err != nil {
		return nil, newGenerationError(fmt.Sprintf("create execution context: %v", err))
	}
	return &Session{model: model, sc: sc, maxNew: maxNewTokens, log: log}, nil
}

// Close releases the session's execution context.
func (s *Session) Close() {
	if s.sc != nil {
		s.sc.Free()
		s.sc = nil
	}
}

// Run generates greedily from prompt until an end-of-generation token or the
// session token budget, and returns the decoded text. A failed run leaves
// the shared model untouched; only this session's context is lost.
func (s *Session) Run(ctx context.Context, prompt string) (string, Stats, error) {
	var stats Stats
	start := time.Now()

	toks, err := safeTokenize(s.model, prompt)
	if err != nil {
		return "", stats, newGenerationError(fmt.Sprintf("tokenize prompt: %v", err))
	}
	stats.PromptTokens = len(toks)

	if window := s.model.ContextSize(); len(toks)+s.maxNew > window {
		return "", stats, newOverflowError(fmt.Sprintf(
			"prompt (%d tokens) plus generation budget (%d) exceeds context window %d",
			len(toks), s.maxNew, window))
	}

	if err := safeFeed(s.sc, toks); err != nil {
		return "", stats, newGenerationError(fmt.Sprintf("evaluate prompt: %v", err))
	}

	var sb strings.Builder
	for i := 0; i < s.maxNew; i++ {
		// Cancellation is checked between steps; a step in progress runs to
		// completion.
		if err := ctx.Err(); err != nil {
			return "", stats, err
		}

		tok, err := safeSample(s.sc)
		if err != nil {
			return "", stats, newGenerationError(fmt.Sprintf("sample step %d: %v", i, err))
		}
		if s.model.IsEOG(tok) {
			break
		}

		sb.WriteString(s.dec.Write(s.model.TokenBytes(tok)))
		stats.TokensGenerated++

		if err := safeFeed(s.sc, []Token{tok}); err != nil {
			return "", stats, newGenerationError(fmt.Sprintf("evaluate step %d: %v", i, err))
		}
	}
	stats.HitTokenLimit = stats.TokensGenerated == s.maxNew

	if dropped := s.dec.Flush(); len(dropped) > 0 {
		s.log.Debug("dropped undecodable trailing bytes", "bytes", len(dropped))
	}
	stats.Duration = time.Since(start)

	return sb.String(), stats, nil
}

// The safe* wrappers convert panics from the backend (FFI boundary) into
// errors so a misbehaving step cannot take the process down.

func safeNewContext(m Model) (sc SessionContext, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in NewSessionContext: %v", rec)
		}
	}()
	return m.NewSessionContext()
}

func safeTokenize(m Model, text string) (toks []Token, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Tokenize: %v", rec)
		}
	}()
	return m.Tokenize(text)
}

func safeFeed(sc SessionContext, toks []Token) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Feed: %v", rec)
		}
	}()
	return sc.Feed(toks)
}

func safeSample(sc SessionContext) (tok Token, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Sample: %v", rec)
		}
	}()
	return sc.Sample()
}
