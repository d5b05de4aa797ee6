package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// Downloader fetches voice model files over HTTP into a models directory.
// Files already present on disk are never re-downloaded.
type Downloader struct {
	dir    string
	client *http.Client
}

// NewDownloader creates a Downloader that stores files under dir.
// A nil client selects http.DefaultClient.
func NewDownloader(dir string, client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{dir: dir, client: client}
}

// ModelPath returns the local path of the voice's ONNX model file.
func (d *Downloader) ModelPath(v Voice) string {
	return filepath.Join(d.dir, v.ModelFile())
}

// EnsureFiles makes sure the voice's model and config files exist locally,
// downloading whichever are missing. It returns the local model path.
func (d *Downloader) EnsureFiles(ctx context.Context, v Voice) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("voice: create models dir: %w", err)
	}
	files := []struct {
		url, path string
	}{
		{v.ModelURL, d.ModelPath(v)},
		{v.ConfigURL, filepath.Join(d.dir, v.ConfigFile())},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		slog.Info("downloading voice model file", "voice", v.ID, "url", f.url, "dest", f.path)
		if err := d.fetch(ctx, f.url, f.path); err != nil {
			return "", err
		}
	}
	return d.ModelPath(v), nil
}

// fetch downloads url into path, writing to a temporary sibling first so a
// failed transfer never leaves a truncated file behind.
func (d *Downloader) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("voice: create download request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("voice: GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("voice: GET %s returned status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".part-*")
	if err != nil {
		return fmt.Errorf("voice: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("voice: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("voice: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("voice: move download into place: %w", err)
	}
	return nil
}
