// Package staging owns the destination directory where symbol artifacts are
// written before upload.
package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dsymup/internal/apperr"
	"dsymup/internal/models"
)

const (
	artifactExt = ".sym"
	tmpDirName  = ".tmp"
)

// Area is a staging directory exclusively owned by one pipeline run.
type Area struct {
	root string
}

// Check validates that root is an existing directory without creating anything.
func Check(root string) error {
	root = strings.TrimSpace(root)
	if root == "" {
		return apperr.Validation("staging", "Destination path not found")
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return apperr.Validationf("staging", "Destination path not found: %s", root)
	}
	return nil
}

// Open returns the staging area rooted at root, which must already exist.
func Open(root string) (*Area, error) {
	if err := Check(root); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, err
	}
	return &Area{root: abs}, nil
}

// Root returns the absolute staging directory.
func (a *Area) Root() string {
	return a.root
}

// PathFor returns the deterministic artifact path for s. Slices with the same
// architecture and build identifier share one path.
func (a *Area) PathFor(s models.BinarySlice) string {
	return filepath.Join(a.root, sanitize(s.Key())+artifactExt)
}

// Reserve creates or truncates the artifact file for s, leaving it empty.
func (a *Area) Reserve(s models.BinarySlice) (string, error) {
	path := a.PathFor(s)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	return path, f.Close()
}

// Commit streams write's output into a temp file and renames it over the
// reserved path. On failure the temp file is discarded and the reserved path
// keeps whatever it held before (normally nothing).
func (a *Area) Commit(ctx context.Context, s models.BinarySlice, write func(io.Writer) error) (models.SymbolArtifact, error) {
	if err := ctx.Err(); err != nil {
		return a.Inspect(s), err
	}

	tmpDir := filepath.Join(a.root, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return a.Inspect(s), err
	}
	tmp, err := os.CreateTemp(tmpDir, "dump-*")
	if err != nil {
		return a.Inspect(s), err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return a.Inspect(s), err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return a.Inspect(s), err
	}
	if err := os.Rename(tmpPath, a.PathFor(s)); err != nil {
		cleanup()
		return a.Inspect(s), err
	}
	return a.Inspect(s), nil
}

// Inspect reports the current state of the artifact for s.
func (a *Area) Inspect(s models.BinarySlice) models.SymbolArtifact {
	art := models.SymbolArtifact{
		Arch:    s.Arch,
		BuildID: s.BuildID,
		Source:  s.File,
		Path:    a.PathFor(s),
	}
	return Recheck(art)
}

// Close removes the temp directory if nothing is left in it.
func (a *Area) Close() error {
	tmpDir := filepath.Join(a.root, tmpDirName)
	entries, err := os.ReadDir(tmpDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(tmpDir)
}

// Recheck refreshes size and readability of art from disk.
func Recheck(art models.SymbolArtifact) models.SymbolArtifact {
	art.Size = 0
	art.Readable = false
	info, err := os.Stat(art.Path)
	if err != nil || !info.Mode().IsRegular() {
		return art
	}
	art.Size = info.Size()
	f, err := os.Open(art.Path)
	if err != nil {
		return art
	}
	_ = f.Close()
	art.Readable = true
	return art
}

// Valid filters artifacts to those present, readable and non-empty.
func Valid(artifacts []models.SymbolArtifact) []models.SymbolArtifact {
	out := make([]models.SymbolArtifact, 0, len(artifacts))
	for _, art := range artifacts {
		if art.Valid() {
			out = append(out, art)
		}
	}
	return out
}

// Checksum returns the hex SHA-256 of the artifact content.
func Checksum(art models.SymbolArtifact) (string, error) {
	f, err := os.Open(art.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", art.Path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileName returns the upload file name for art.
func FileName(art models.SymbolArtifact) string {
	return filepath.Base(art.Path)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
