package inference

import "errors"

// ErrLoadFailed indicates the artifact exists but could not be loaded.
var ErrLoadFailed = errors.New("load_failed")

// ErrContextOverflow indicates the prompt plus generation budget does not
// fit the model's context window. The input is never silently truncated.
var ErrContextOverflow = errors.New("context_overflow")

// ErrGeneration indicates the engine failed mid-session. The session is
// aborted; the loaded model stays usable for the next request.
var ErrGeneration = errors.New("generation_failed")

type loadError struct {
	msg string
}

func (e loadError) Error() string { return e.msg }
func (e loadError) Unwrap() error { return ErrLoadFailed }

func newLoadError(msg string) error {
	return loadError{msg: msg}
}

type overflowError struct {
	msg string
}

func (e overflowError) Error() string { return e.msg }
func (e overflowError) Unwrap() error { return ErrContextOverflow }

func newOverflowError(msg string) error {
	return overflowError{msg: msg}
}

type generationError struct {
	msg string
}

func (e generationError) Error() string { return e.msg }
func (e generationError) Unwrap() error { return ErrGeneration }

func newGenerationError(msg string) error {
	return generationError{msg: msg}
}
