// Package scan enumerates architecture slices inside a debug-information bundle.
package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dsymup/internal/apperr"
	"dsymup/internal/models"
	"dsymup/internal/probe"
)

// Scanner walks a bundle and asks a probe about every candidate file.
type Scanner struct {
	probe probe.Probe
}

// New returns a Scanner using p to recognize binaries.
func New(p probe.Probe) *Scanner {
	return &Scanner{probe: p}
}

// CheckBundle validates that bundlePath exists and is readable.
func CheckBundle(bundlePath string) error {
	if strings.TrimSpace(bundlePath) == "" {
		return apperr.Validation("scan", "DSYM path not found")
	}
	f, err := os.Open(bundlePath)
	if err != nil {
		return apperr.Validationf("scan", "DSYM path not found: %s", bundlePath)
	}
	_ = f.Close()
	return nil
}

// Scan returns every architecture slice in bundlePath, which may be a single
// file or a directory tree. Files the probe does not recognize are skipped.
// Slices come out in file walk order, then in probe order.
func (s *Scanner) Scan(ctx context.Context, bundlePath string) ([]models.BinarySlice, error) {
	if err := CheckBundle(bundlePath); err != nil {
		return nil, err
	}

	files, err := candidates(bundlePath)
	if err != nil {
		return nil, err
	}

	slices := make([]models.BinarySlice, 0, len(files))
	for _, file := range files {
		arches, err := s.probe.Probe(ctx, file)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			slog.Debug("skipping unreadable bundle member", "file", file, "err", err)
			continue
		}
		if len(arches) == 0 {
			slog.Debug("skipping non-binary bundle member", "file", file)
			continue
		}
		for _, a := range arches {
			slices = append(slices, models.BinarySlice{File: file, Arch: a.Name, BuildID: a.UUID})
		}
	}
	return slices, nil
}

func candidates(bundlePath string) ([]string, error) {
	info, err := os.Stat(bundlePath)
	if err != nil {
		return nil, apperr.Validationf("scan", "DSYM path not found: %s", bundlePath)
	}
	if !info.IsDir() {
		return []string{bundlePath}, nil
	}

	var files []string
	err = filepath.WalkDir(bundlePath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == bundlePath {
				return walkErr
			}
			// Unreadable subtrees cannot hold anything we could dump.
			slog.Debug("skipping unreadable bundle path", "path", path, "err", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Validationf("scan", "DSYM path not readable: %s", bundlePath)
	}
	return files, nil
}
