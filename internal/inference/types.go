package inference

// Token is a model vocabulary id.
type Token int32

// Model is the capability surface of loaded model weights. The concrete
// implementation lives in internal/backend; tests substitute fakes.
// Tokenize, TokenBytes and IsEOG are safe for concurrent use; execution
// contexts are not, and the dispatcher serializes them.
type Model interface {
	// NewSessionContext creates an execution context scoped to one request.
	NewSessionContext() (SessionContext, error)
	// Tokenize encodes text against the model vocabulary.
	Tokenize(text string) ([]Token, error)
	// TokenBytes returns the raw bytes a generated token contributes to the
	// output stream. May be a partial UTF-8 sequence.
	TokenBytes(tok Token) []byte
	// IsEOG reports whether tok ends generation.
	IsEOG(tok Token) bool
	// ContextSize returns the fixed context window in token positions.
	ContextSize() int
	Close() error
}

// SessionContext is a single-request execution context over the loaded
// weights. Feed evaluates tokens, extending the context; Sample returns the
// highest-probability next token given everything fed so far.
type SessionContext interface {
	Feed(toks []Token) error
	Sample() (Token, error)
	Free()
}

// Loader turns a model artifact path into loaded weights.
type Loader interface {
	Load(path string) (Model, error)
}
