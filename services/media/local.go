package mediasvc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

// LocalStorage writes uploaded files under the configured media root. Names
// are prefixed with a timestamp so repeated uploads of the same file never
// collide.
type LocalStorage struct {
	root string
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(conf *core.Config) *LocalStorage {
	root := conf.MediaRoot
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	return &LocalStorage{root: root}
}

func (s *LocalStorage) Save(name string, r io.Reader) (string, error) {
	name = sanitizeName(name)
	sub := time.Now().UTC().Format("2006/01")
	dir := filepath.Join(s.root, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	fname := fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)
	path := filepath.Join(dir, fname)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer f.Close()

	if _, err = io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "writing media file")
	}
	return filepath.Join(sub, fname), nil
}

func (s *LocalStorage) Delete(path string) error {
	if err := os.Remove(filepath.Join(s.root, path)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing media file")
	}
	return nil
}

// Open returns the stored file for download handlers.
func (s *LocalStorage) Open(path string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.root, path))
	return f, errors.Wrap(err, "opening media file")
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
