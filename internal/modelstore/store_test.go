package modelstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func testDescriptor(url string) Descriptor {
	return Descriptor{
		Name:     "test/model",
		FileName: "model.gguf",
		URL:      url,
	}
}

func TestEnsureAvailableDownloadsOnce(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("GGUF model bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := New(testDescriptor(srv.URL), dir, nil)

	path, err := store.EnsureAvailable(context.Background())
	if err != nil {
		t.Fatalf("EnsureAvailable returned error: %v", err)
	}
	if want := filepath.Join(dir, "model.gguf"); path != want {
		t.Fatalf("unexpected path: got %q want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "GGUF model bytes" {
		t.Fatalf("unexpected file contents: %q", data)
	}

	// Second call must make no network request.
	if _, err := store.EnsureAvailable(context.Background()); err != nil {
		t.Fatalf("second EnsureAvailable returned error: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("expected exactly one download request, got %d", got)
	}
}

func TestEnsureAvailableCreatesDirectoryTree(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "nested", "models")
	store := New(testDescriptor(srv.URL), dir, nil)

	if _, err := store.EnsureAvailable(context.Background()); err != nil {
		t.Fatalf("EnsureAvailable returned error: %v", err)
	}
	if !store.Downloaded() {
		t.Fatal("expected artifact to be present after download")
	}
}

func TestEnsureAvailableHTTPErrorIsDownloadFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := New(testDescriptor(srv.URL), dir, nil)

	_, err := store.EnsureAvailable(context.Background())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}

	// A failed download must not leave a file the store would accept.
	if store.Downloaded() {
		t.Fatal("artifact reported present after failed download")
	}
	if leftover := tempFiles(t, dir); len(leftover) != 0 {
		t.Fatalf("expected temp files to be cleaned up, found %v", leftover)
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.download-*"))
	if err != nil {
		t.Fatalf("glob temp files: %v", err)
	}
	return matches
}

func TestEnsureAvailableNoPartialFileVisible(t *testing.T) {
	t.Parallel()

	// The server writes some bytes then fails the connection mid-body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		_, _ = w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	store := New(testDescriptor(srv.URL), dir, nil)

	if _, err := store.EnsureAvailable(context.Background()); err == nil {
		t.Fatal("expected error from interrupted download")
	}
	if store.Downloaded() {
		t.Fatal("torn download must not be visible at the final path")
	}
}

func TestEnsureAvailableConcurrentDownloadsDoNotTear(t *testing.T) {
	t.Parallel()

	const (
		slowPayload = "slowslowslow"
		fastPayload = "FASTFASTFAST"
	)
	var (
		requests atomic.Int64
		stalled  = make(chan struct{})
		release  = make(chan struct{})
	)
	// The first request stalls mid-body; the second completes immediately.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			_, _ = w.Write([]byte(slowPayload[:4]))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			close(stalled)
			<-release
			_, _ = w.Write([]byte(slowPayload[4:]))
			return
		}
		_, _ = w.Write([]byte(fastPayload))
	}))
	defer srv.Close()

	dir := t.TempDir()
	slow := New(testDescriptor(srv.URL), dir, nil)
	fast := New(testDescriptor(srv.URL), dir, nil)

	slowDone := make(chan error, 1)
	go func() {
		_, err := slow.EnsureAvailable(context.Background())
		slowDone <- err
	}()
	<-stalled

	// The second downloader finishes and renames its copy into place while
	// the first is still writing.
	if _, err := fast.EnsureAvailable(context.Background()); err != nil {
		t.Fatalf("concurrent EnsureAvailable returned error: %v", err)
	}
	close(release)
	if err := <-slowDone; err != nil {
		t.Fatalf("stalled EnsureAvailable returned error: %v", err)
	}

	// The slow writer renamed last, so its complete payload must be the
	// live artifact. Any mix of the two payloads means a torn write.
	data, err := os.ReadFile(slow.Path())
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != slowPayload {
		t.Fatalf("artifact torn by racing download: got %q", data)
	}
	if leftover := tempFiles(t, dir); len(leftover) != 0 {
		t.Fatalf("expected temp files to be cleaned up, found %v", leftover)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("model data"))
	}))
	defer srv.Close()

	store := New(testDescriptor(srv.URL), t.TempDir(), nil)
	if _, err := store.EnsureAvailable(context.Background()); err != nil {
		t.Fatalf("EnsureAvailable returned error: %v", err)
	}

	m, ok, err := store.ReadManifest()
	if err != nil {
		t.Fatalf("ReadManifest returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected manifest to exist after download")
	}
	if m.Name != "test/model" {
		t.Fatalf("manifest name: got %q want %q", m.Name, "test/model")
	}
	if m.SizeBytes != int64(len("model data")) {
		t.Fatalf("manifest size: got %d want %d", m.SizeBytes, len("model data"))
	}
	if m.DownloadedAt.IsZero() {
		t.Fatal("manifest downloaded_at is zero")
	}
}

func TestReadManifestAbsent(t *testing.T) {
	t.Parallel()

	store := New(testDescriptor("http://unused.invalid"), t.TempDir(), nil)
	_, ok, err := store.ReadManifest()
	if err != nil {
		t.Fatalf("ReadManifest returned error: %v", err)
	}
	if ok {
		t.Fatal("expected no manifest in empty cache")
	}
}

func TestDefaultDescriptorURL(t *testing.T) {
	t.Parallel()

	desc := DefaultDescriptor()
	want := "https://huggingface.co/LiquidAI/LFM2-350M-ENJP-MT-GGUF/resolve/main/lfm2-350m-enjp-mt-q4_k_m.gguf"
	if desc.URL != want {
		t.Fatalf("descriptor URL: got %q want %q", desc.URL, want)
	}
}
