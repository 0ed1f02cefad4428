package backend

import (
	"fmt"
	"os"

	"github.com/hybridgroup/yzma/pkg/llama"

	"github.com/konnyaku/konnyaku/internal/inference"
	"github.com/konnyaku/konnyaku/internal/logger"
)

const (
	defaultContextSize = 4096
	defaultBatchSize   = 512

	// Offload everything when a GPU is present; llama.cpp clamps to the
	// model's actual layer count.
	allGPULayers = 999

	pieceBufSize = 64
)

// Options configures how models are loaded and how much context each
// translation gets.
type Options struct {
	// LibPath is the directory holding the llama.cpp shared libraries.
	// Empty means KONNYAKU_LIB or the conventional locations.
	LibPath string

	// ContextSize is the token window per translation context.
	ContextSize uint32

	// BatchSize is the prompt evaluation batch size.
	BatchSize uint32
}

// DefaultOptions returns the options used by the stock translation model.
func DefaultOptions() Options {
	return Options{
		ContextSize: defaultContextSize,
		BatchSize:   defaultBatchSize,
	}
}

// Loader loads GGUF models through yzma. It implements inference.Loader.
type Loader struct {
	Opts Options
	Log  logger.Logger
}

// NewLoader builds a Loader; zero-valued options fall back to defaults.
func NewLoader(opts Options, log logger.Logger) *Loader {
	if opts.ContextSize == 0 {
		opts.ContextSize = defaultContextSize
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = logger.Default()
	}
	return &Loader{Opts: opts, Log: log}
}

// Load loads the GGUF file at path. When a GPU is available the model is
// offloaded; if the offloaded load fails it is retried on the CPU, so a
// flaky driver degrades throughput instead of breaking the load.
func (l *Loader) Load(path string) (inference.Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := ensureInit(l.Opts.LibPath, l.Log); err != nil {
		return nil, err
	}

	params := llama.ModelDefaultParams()
	usingGPU := false
	if gpuAvailable {
		params.NGpuLayers = allGPULayers
		usingGPU = true
	}

	lm, err := llama.ModelLoadFromFile(path, params)
	if err != nil && usingGPU {
		l.Log.Warn("gpu model load failed, retrying on cpu", "error", err)
		params.NGpuLayers = 0
		usingGPU = false
		lm, err = llama.ModelLoadFromFile(path, params)
	}
	if err != nil {
		return nil, fmt.Errorf("load gguf %s: %w", path, err)
	}

	l.Log.Info("model loaded", "path", path, "gpu", usingGPU)
	return &model{
		lm:       lm,
		vocab:    llama.ModelGetVocab(lm),
		opts:     l.Opts,
		usingGPU: usingGPU,
	}, nil
}

type model struct {
	lm       llama.Model
	vocab    llama.Vocab
	opts     Options
	usingGPU bool
}

var _ inference.Model = (*model)(nil)

func (m *model) Tokenize(text string) ([]inference.Token, error) {
	raw := llama.Tokenize(m.vocab, text, true, false)
	if len(raw) == 0 {
		return nil, fmt.Errorf("tokenizer produced no tokens")
	}
	toks := make([]inference.Token, len(raw))
	for i, t := range raw {
		toks[i] = inference.Token(t)
	}
	return toks, nil
}

func (m *model) TokenBytes(tok inference.Token) []byte {
	buf := make([]byte, pieceBufSize)
	n := llama.TokenToPiece(m.vocab, llama.Token(tok), buf, 0, true)
	if n <= 0 {
		return nil
	}
	return buf[:n]
}

func (m *model) IsEOG(tok inference.Token) bool {
	return llama.VocabIsEOG(m.vocab, llama.Token(tok))
}

func (m *model) ContextSize() int { return int(m.opts.ContextSize) }

func (m *model) UsingGPU() bool { return m.usingGPU }

func (m *model) Close() error {
	llama.ModelFree(m.lm)
	return nil
}

// NewSessionContext creates a fresh llama context plus a greedy sampler.
// One per translation; freed when the session ends.
func (m *model) NewSessionContext() (inference.SessionContext, error) {
	ctxParams := llama.ContextDefaultParams()
	ctxParams.NCtx = m.opts.ContextSize
	ctxParams.NBatch = m.opts.BatchSize

	lctx, err := llama.InitFromModel(m.lm, ctxParams)
	if err != nil {
		return nil, fmt.Errorf("init context: %w", err)
	}

	// Greedy decoding: temperature zero, single candidate. Same prompt,
	// same output.
	sp := llama.DefaultSamplerParams()
	sp.Temp = 0
	sp.TopK = 1
	sp.TopP = 1
	sampler := llama.NewSampler(m.lm, llama.DefaultSamplers, sp)

	return &sessionContext{lctx: lctx, sampler: sampler, nBatch: int(m.opts.BatchSize)}, nil
}

type sessionContext struct {
	lctx    llama.Context
	sampler llama.Sampler
	nBatch  int
	freed   bool
}

// Feed evaluates toks in sub-batches of at most nBatch tokens. llama_decode
// rejects a batch larger than the context's n_batch, and a full-length
// prompt can run to several times that.
func (c *sessionContext) Feed(toks []inference.Token) error {
	if len(toks) == 0 {
		return nil
	}
	raw := make([]llama.Token, len(toks))
	for i, t := range toks {
		raw[i] = llama.Token(t)
	}
	for _, chunk := range batchChunks(raw, c.nBatch) {
		// BatchGetOne returns a stack-allocated batch; no BatchFree.
		batch := llama.BatchGetOne(chunk)
		if _, err := llama.Decode(c.lctx, batch); err != nil {
			return fmt.Errorf("decode batch of %d: %w", len(chunk), err)
		}
	}
	return nil
}

// batchChunks splits toks into consecutive runs of at most n tokens. A
// non-positive n means no splitting.
func batchChunks(toks []llama.Token, n int) [][]llama.Token {
	if n <= 0 || len(toks) <= n {
		return [][]llama.Token{toks}
	}
	chunks := make([][]llama.Token, 0, (len(toks)+n-1)/n)
	for len(toks) > n {
		chunks = append(chunks, toks[:n])
		toks = toks[n:]
	}
	return append(chunks, toks)
}

func (c *sessionContext) Sample() (inference.Token, error) {
	tok := llama.SamplerSample(c.sampler, c.lctx, -1)
	return inference.Token(tok), nil
}

func (c *sessionContext) Free() {
	if c.freed {
		return
	}
	c.freed = true
	llama.SamplerFree(c.sampler)
	llama.Free(c.lctx)
}
