package modelstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Manifest records where the cached artifact came from. It is informational
// only; presence of the artifact file is the source of truth.
type Manifest struct {
	Name         string    `json:"name"`
	FileName     string    `json:"file_name"`
	SourceURL    string    `json:"source_url"`
	SizeBytes    int64     `json:"size_bytes"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

func (s *Store) manifestPath() string {
	name := strings.TrimSuffix(s.desc.FileName, filepath.Ext(s.desc.FileName))
	return filepath.Join(s.dir, name+".manifest.json")
}

func (s *Store) writeManifest(size int64) error {
	m := Manifest{
		Name:         s.desc.Name,
		FileName:     s.desc.FileName,
		SourceURL:    s.desc.URL,
		SizeBytes:    size,
		DownloadedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest written after the last download. Returns
// ok=false when no manifest exists (artifact placed manually, or pre-manifest
// cache).
func (s *Store) ReadManifest() (Manifest, bool, error) {
	data, err := os.ReadFile(s.manifestPath())
	if os.IsNotExist(err) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("decode manifest: %w", err)
	}
	return m, true, nil
}
