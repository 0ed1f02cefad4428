package modelstore

import "errors"

// ErrDownloadFailed indicates the model source was unreachable or returned
// an error. Recoverable by calling EnsureAvailable again.
var ErrDownloadFailed = errors.New("download_failed")

// ErrIO indicates the cache directory or file could not be written.
var ErrIO = errors.New("io_failure")

type downloadError struct {
	msg string
}

func (e downloadError) Error() string { return e.msg }
func (e downloadError) Unwrap() error { return ErrDownloadFailed }

func newDownloadError(msg string) error {
	return downloadError{msg: msg}
}

type ioError struct {
	msg string
}

func (e ioError) Error() string { return e.msg }
func (e ioError) Unwrap() error { return ErrIO }

func newIOError(msg string) error {
	return ioError{msg: msg}
}
