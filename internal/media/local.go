package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps files under Dir and serves them below URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir, URLPrefix: "/media/"}
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(target), "upload-*")
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	fail := func(err error) (string, error) {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return "", err
	}

	if _, err := io.Copy(tmpFile, r); err != nil {
		return fail(fmt.Errorf("write media file: %w", err))
	}
	if err := tmpFile.Close(); err != nil {
		return fail(fmt.Errorf("close media file: %w", err))
	}
	if err := os.Rename(tmpFile.Name(), target); err != nil {
		return fail(fmt.Errorf("move media file: %w", err))
	}
	_ = os.Chmod(target, 0o644)

	return s.prefix() + key, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

func (s *LocalStore) KeyForURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, s.prefix())
	if !ok {
		return "", false
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", false
	}
	return key, true
}

// Handler serves stored files; mount it at URLPrefix.
func (s *LocalStore) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.StripPrefix(strings.TrimSuffix(s.prefix(), "/"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func (s *LocalStore) prefix() string {
	p := s.URLPrefix
	if p == "" {
		p = "/media/"
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
