// Package modelstore acquires and caches the model artifact on disk.
//
// The store resolves a platform cache directory, reports whether the
// artifact is present, and downloads it when absent. Downloads land in a
// temporary file and are moved into place with an atomic rename, so a crash
// mid-download never leaves a truncated file that looks valid, whether to
// this process or to another process racing on the same cache path.
package modelstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/konnyaku/konnyaku/internal/logger"
)

const (
	modelRepo = "LiquidAI/LFM2-350M-ENJP-MT-GGUF"
	modelFile = "lfm2-350m-enjp-mt-q4_k_m.gguf"

	defaultDownloadTimeout = 5 * time.Minute
)

// Descriptor identifies the model artifact the store manages.
type Descriptor struct {
	Name     string
	FileName string
	URL      string
}

// DefaultDescriptor returns the translation model konnyaku ships with.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Name:     modelRepo,
		FileName: modelFile,
		URL:      fmt.Sprintf("https://huggingface.co/%s/resolve/main/%s", modelRepo, modelFile),
	}
}

// Store manages one model artifact in a cache directory.
type Store struct {
	desc    Descriptor
	dir     string
	client  *http.Client
	timeout time.Duration
	log     logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) { s.client = client }
}

// WithTimeout bounds a single download attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// New creates a Store for desc rooted at dir.
func New(desc Descriptor, dir string, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		desc:    desc,
		dir:     dir,
		client:  http.DefaultClient,
		timeout: defaultDownloadTimeout,
		log:     log,
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDir resolves the platform cache directory for model artifacts.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", newIOError(fmt.Sprintf("resolve user cache dir: %v", err))
	}
	return filepath.Join(base, "konnyaku", "models"), nil
}

// Path returns the expected on-disk location of the artifact.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.desc.FileName)
}

// Descriptor returns the managed artifact's descriptor.
func (s *Store) Descriptor() Descriptor {
	return s.desc
}

// Downloaded reports whether the artifact is present. Non-blocking.
func (s *Store) Downloaded() bool {
	info, err := os.Stat(s.Path())
	return err == nil && !info.IsDir()
}

// EnsureAvailable returns the artifact path, downloading it first if absent.
// When the file already exists no network access happens.
func (s *Store) EnsureAvailable(ctx context.Context) (string, error) {
	target := s.Path()
	if s.Downloaded() {
		return target, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", newIOError(fmt.Sprintf("prepare cache directory: %v", err))
	}

	s.log.Info("downloading model artifact", "name", s.desc.Name, "url", s.desc.URL)
	start := time.Now()
	size, err := s.download(ctx, target)
	if err != nil {
		return "", err
	}
	s.log.Info("model artifact downloaded",
		"path", target, "bytes", size, "duration", time.Since(start).Round(time.Millisecond))

	if err := s.writeManifest(size); err != nil {
		// The artifact itself is in place; manifest is informational only.
		s.log.Warn("write model manifest", "error", err)
	}
	return target, nil
}

// download fetches the artifact into a temp file and renames it into place.
func (s *Store) download(ctx context.Context, target string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.desc.URL, nil)
	if err != nil {
		return 0, newDownloadError(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("User-Agent", "konnyaku")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, newDownloadError(fmt.Sprintf("request model: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, newDownloadError(fmt.Sprintf("unexpected HTTP status: %s", resp.Status))
	}

	// A unique temp name per attempt: concurrent downloaders (other
	// goroutines or other processes sharing the cache) each write their own
	// file and the atomic rename decides who lands last, with no writer
	// ever touching another's bytes or the live artifact.
	file, err := os.CreateTemp(s.dir, s.desc.FileName+".download-*")
	if err != nil {
		return 0, newIOError(fmt.Sprintf("create temp file: %v", err))
	}
	tmpPath := file.Name()
	if err := file.Chmod(0o644); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return 0, newIOError(fmt.Sprintf("set temp file mode: %v", err))
	}

	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return 0, newDownloadError(fmt.Sprintf("write model bytes: %v", copyErr))
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return 0, newIOError(fmt.Sprintf("close temp file: %v", closeErr))
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return 0, newIOError(fmt.Sprintf("move model into place: %v", err))
	}
	return written, nil
}
