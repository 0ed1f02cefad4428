package inference

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Test doubles shared by handle and session tests. The fake model encodes
// one token per rune and replays a scripted byte sequence per prompt, which
// makes greedy output deterministic by construction.

const (
	fakeEOG   Token = 2
	pieceBase Token = 0x200000
)

type fakeModel struct {
	window int

	mu           sync.Mutex
	script       map[string][][]byte
	pieces       map[Token][]byte
	nextPiece    Token
	liveContexts int
	closed       bool

	tokenizeErr   error
	newContextErr error
	feedErr       error
	sampleErrAt   int
	samplePanicAt int
}

func newFakeModel(window int) *fakeModel {
	return &fakeModel{
		window:        window,
		script:        make(map[string][][]byte),
		pieces:        make(map[Token][]byte),
		nextPiece:     pieceBase,
		sampleErrAt:   -1,
		samplePanicAt: -1,
	}
}

// addScript registers the byte chunks generation emits for prompt, one
// chunk per generated token, followed by an implicit end-of-generation.
func (m *fakeModel) addScript(prompt string, chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script[prompt] = chunks
}

func (m *fakeModel) seqFor(prompt string) []Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := m.script[prompt]
	seq := make([]Token, 0, len(chunks))
	for _, chunk := range chunks {
		tok := m.nextPiece
		m.nextPiece++
		m.pieces[tok] = chunk
		seq = append(seq, tok)
	}
	return seq
}

func (m *fakeModel) NewSessionContext() (SessionContext, error) {
	if m.newContextErr != nil {
		return nil, m.newContextErr
	}
	m.mu.Lock()
	m.liveContexts++
	m.mu.Unlock()
	return &fakeContext{m: m}, nil
}

func (m *fakeModel) Tokenize(text string) ([]Token, error) {
	if m.tokenizeErr != nil {
		return nil, m.tokenizeErr
	}
	toks := make([]Token, 0, len(text))
	for _, r := range text {
		toks = append(toks, Token(r))
	}
	return toks, nil
}

func (m *fakeModel) TokenBytes(tok Token) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pieces[tok]
}

func (m *fakeModel) IsEOG(tok Token) bool { return tok == fakeEOG }
func (m *fakeModel) ContextSize() int     { return m.window }

func (m *fakeModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *fakeModel) contexts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveContexts
}

type fakeContext struct {
	m      *fakeModel
	prompt []rune
	seq    []Token
	primed bool
	step   int
	freed  bool
}

func (c *fakeContext) Feed(toks []Token) error {
	if c.m.feedErr != nil {
		return c.m.feedErr
	}
	if c.freed {
		return errors.New("feed on freed context")
	}
	if !c.primed {
		for _, t := range toks {
			c.prompt = append(c.prompt, rune(t))
		}
		c.seq = c.m.seqFor(string(c.prompt))
		c.primed = true
	}
	return nil
}

func (c *fakeContext) Sample() (Token, error) {
	if c.m.samplePanicAt == c.step {
		panic(fmt.Sprintf("native fault at step %d", c.step))
	}
	if c.m.sampleErrAt == c.step {
		return 0, fmt.Errorf("scripted sample failure at step %d", c.step)
	}
	if c.step >= len(c.seq) {
		return fakeEOG, nil
	}
	tok := c.seq[c.step]
	c.step++
	return tok, nil
}

func (c *fakeContext) Free() {
	if c.freed {
		return
	}
	c.freed = true
	c.m.mu.Lock()
	c.m.liveContexts--
	c.m.mu.Unlock()
}

type fakeLoader struct {
	model Model
	errs  []error // consumed per call; nil entry means success
	delay time.Duration
	gate  chan struct{} // when set, Load blocks until the gate closes
	calls atomic.Int64
}

func (l *fakeLoader) Load(path string) (Model, error) {
	n := l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if int(n) <= len(l.errs) && l.errs[n-1] != nil {
		return nil, l.errs[n-1]
	}
	return l.model, nil
}
