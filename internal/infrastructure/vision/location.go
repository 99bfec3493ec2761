package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// resolveModel возвращает локальный путь к модели.
// URL http(s) скачивается в cacheDir один раз, локальный путь проверяется на существование.
func resolveModel(ctx context.Context, location, cacheDir string) (string, error) {
	u, err := url.Parse(location)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return downloadModel(ctx, u, cacheDir)
	}

	local := location
	if err == nil && u.Scheme == "file" {
		local = u.Path
	}
	if _, err := os.Stat(local); err != nil {
		return "", fmt.Errorf("model file not found: %w", err)
	}
	return local, nil
}

func cachePath(u *url.URL, cacheDir string) string {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "objdetect-models")
	}
	sum := sha256.Sum256([]byte(u.String()))
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "model.onnx"
	}
	return filepath.Join(cacheDir, hex.EncodeToString(sum[:6])+"-"+name)
}

// downloadModel скачивает модель, если её ещё нет в кэше
func downloadModel(ctx context.Context, u *url.URL, cacheDir string) (string, error) {
	target := cachePath(u, cacheDir)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create model cache: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download model: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("read model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("store model: %w", err)
	}
	return target, nil
}
