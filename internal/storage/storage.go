// Package storage persists uploaded blog images on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
)

// URLPrefix is the public path under which stored images are served.
const URLPrefix = "/uploads/"

// ImageStore is the byte-storage abstraction used by the blog service.
type ImageStore interface {
	// Save stores r and returns the public relative path (e.g. /uploads/x.png).
	Save(ctx context.Context, ownerID, filename string, r io.Reader) (string, error)
	// Delete removes a previously saved image by its relative path.
	Delete(ctx context.Context, relPath string) error
}

// Local writes images into a single directory.
type Local struct {
	root string
	now  func() time.Time
}

// NewLocal creates the upload directory (and its tmp/ staging area) if needed.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("storage: upload root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, ".tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload dir: %w", err)
	}
	return &Local{root: abs, now: time.Now}, nil
}

// Root returns the absolute directory images are written to.
func (l *Local) Root() string { return l.root }

// Save names the file <owner>_blog_<unixMillis>_<basename>. A basename with
// nothing URL-safe left in it (e.g. "写真.jpg") is replaced by a generated
// one that keeps the extension.
//
// Bytes go to a temp file first and are renamed into place, so a failed or
// cancelled upload never leaves a partial image behind under its final name.
func (l *Local) Save(ctx context.Context, ownerID, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("storage: empty filename")
	}
	base := sanitizeFilename(filename)
	if base == "" {
		base = xid.New().String() + fileExt(filename)
	}
	name := fmt.Sprintf("%s_blog_%d_%s", keepSafe(ownerID), l.now().UnixMilli(), base)

	tmp, err := os.CreateTemp(filepath.Join(l.root, ".tmp"), "upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return "", fmt.Errorf("storage: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("storage: closing %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(l.root, name)); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("storage: moving %s into place: %w", name, err)
	}

	return URLPrefix + name, nil
}

// Delete is a no-op for paths that are already gone.
func (l *Local) Delete(_ context.Context, relPath string) error {
	if !strings.HasPrefix(relPath, URLPrefix) {
		return fmt.Errorf("storage: %q is not an upload path", relPath)
	}
	name := path.Base(relPath)
	err := os.Remove(filepath.Join(l.root, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: deleting %s: %w", name, err)
	}
	return nil
}

// sanitizeFilename strips directories and characters that are awkward in
// URLs. It returns "" when no usable stem is left.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimLeft(keepSafe(strings.TrimSuffix(base, ext)), ".")
	if stem == "" {
		return ""
	}
	return stem + fileExt(base)
}

// fileExt returns the URL-safe extension of name including the dot, or "".
func fileExt(name string) string {
	ext := keepSafe(filepath.Ext(filepath.Base(strings.ReplaceAll(name, "\\", "/"))))
	if strings.Trim(ext, ".") == "" {
		return ""
	}
	return ext
}

// keepSafe keeps ASCII letters, digits, dot, dash and underscore, and turns
// spaces into underscores.
func keepSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
