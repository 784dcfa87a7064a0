// Package resources manages the per-session directory that mirrors the
// auxiliary assets (images and the like) referenced by region markup.
package resources

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/pkg/models"
)

// ErrTornDown is returned by operations on a work area after Teardown
var ErrTornDown = errors.New("work area torn down")

// WorkArea is a session directory under a shared root. A single structural
// load populates it at a time; the mutex only guards against misuse.
type WorkArea struct {
	mu        sync.Mutex
	sessionID string
	dir       string
	torn      bool
	logger    *zap.Logger
}

// NewWorkArea creates root/sessionID. An empty root means the OS temp
// directory and an empty sessionID gets a fresh one.
func NewWorkArea(root, sessionID string, logger *zap.Logger) (*WorkArea, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if root == "" {
		root = filepath.Join(os.TempDir(), "editbridge")
	}
	if sessionID == "" {
		sessionID = models.NewID()
	}
	if !filepath.IsLocal(sessionID) || strings.ContainsAny(sessionID, `/\`) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}

	dir := filepath.Join(root, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work area %s: %w", dir, err)
	}

	return &WorkArea{
		sessionID: sessionID,
		dir:       dir,
		logger:    logger.Named("resources").With(zap.String("session", sessionID)),
	}, nil
}

// SessionID returns the id the area is keyed by
func (w *WorkArea) SessionID() string {
	return w.sessionID
}

// Path returns the session directory
func (w *WorkArea) Path() string {
	return w.dir
}

// Populate copies the tree rooted at from into the area, overwriting files
// with the same relative name
func (w *WorkArea) Populate(from string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.torn {
		return ErrTornDown
	}

	info, err := os.Stat(from)
	if err != nil {
		return fmt.Errorf("failed to read resource source %s: %w", from, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("resource source %s is not a directory", from)
	}

	copied := 0
	err = filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		target := filepath.Join(w.dir, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0755)
		case d.Type().IsRegular():
			copied++
			return copyFile(path, target)
		default:
			w.logger.Debug("skipping non-regular file", zap.String("path", path))
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("failed to populate work area from %s: %w", from, err)
	}

	w.logger.Debug("populated work area", zap.String("from", from), zap.Int("files", copied))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// Resolve maps a relative name to its path inside the area. Names that
// would escape the area are refused.
func (w *WorkArea) Resolve(rel string) (string, bool) {
	rel = filepath.FromSlash(rel)
	if rel == "" || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(w.dir, rel), true
}

// Exists reports whether rel names a file in the area
func (w *WorkArea) Exists(rel string) bool {
	w.mu.Lock()
	torn := w.torn
	w.mu.Unlock()
	if torn {
		return false
	}

	path, ok := w.Resolve(rel)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// URL resolves a reference found in markup. Absolute URLs pass through;
// relative names become file URLs inside the area.
func (w *WorkArea) URL(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return ref
	}
	path, ok := w.Resolve(strings.TrimPrefix(ref, "./"))
	if !ok {
		return ref
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// Missing returns the relative asset references in markup with no file in
// the area
func (w *WorkArea) Missing(markup string) ([]string, error) {
	refs, err := AssetRefs(markup)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, ref := range refs {
		if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
			continue
		}
		if !w.Exists(strings.TrimPrefix(ref, "./")) {
			missing = append(missing, ref)
		}
	}
	return missing, nil
}

// Teardown removes the session directory. Later calls are no-ops.
func (w *WorkArea) Teardown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.torn {
		return nil
	}
	w.torn = true

	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove work area %s: %w", w.dir, err)
	}
	w.logger.Debug("work area removed")
	return nil
}
