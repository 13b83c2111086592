package history

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"dsymup/internal/models"
)

const (
	defaultListLimit = 20
	timeLayout       = time.RFC3339Nano
)

// Run is one recorded upload invocation.
type Run struct {
	ID              string               `json:"id" yaml:"id"`
	CreatedAt       time.Time            `json:"created_at" yaml:"created_at"`
	Region          string               `json:"region" yaml:"region"`
	Endpoint        string               `json:"endpoint" yaml:"endpoint"`
	BundlePath      string               `json:"bundle_path" yaml:"bundle_path"`
	Outcome         models.UploadOutcome `json:"outcome" yaml:"outcome"`
	Status          int                  `json:"status,omitempty" yaml:"status,omitempty"`
	Body            string               `json:"body,omitempty" yaml:"body,omitempty"`
	KeyFingerprint  string               `json:"key_fingerprint,omitempty" yaml:"key_fingerprint,omitempty"`
	SlicesAttempted int                  `json:"slices_attempted" yaml:"slices_attempted"`
	SlicesFailed    int                  `json:"slices_failed" yaml:"slices_failed"`
	SlicesEmpty     int                  `json:"slices_empty" yaml:"slices_empty"`
	Parts           []Part               `json:"parts,omitempty" yaml:"parts,omitempty"`
}

// Part is one symbol file sent in a run.
type Part struct {
	Field     string `json:"field" yaml:"field"`
	Arch      string `json:"arch" yaml:"arch"`
	BuildID   string `json:"build_id" yaml:"build_id"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes"`
	SHA256    string `json:"sha256" yaml:"sha256"`
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// KeyFingerprint returns a short, non-reversible tag for an application key
// so runs can be told apart without storing the key.
func KeyFingerprint(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

// Record stores run and its parts in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if !models.IsValidUploadOutcome(run.Outcome) {
		return fmt.Errorf("invalid upload outcome %q", run.Outcome)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO upload_runs
  (id, created_at, region, endpoint, bundle_path, outcome, status, body, key_fingerprint,
   slices_attempted, slices_failed, slices_empty)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Region, run.Endpoint, run.BundlePath,
		string(run.Outcome), run.Status, run.Body, run.KeyFingerprint,
		run.SlicesAttempted, run.SlicesFailed, run.SlicesEmpty,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, p := range run.Parts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO upload_parts (run_id, field, arch, build_id, size_bytes, sha256) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, p.Field, p.Arch, p.BuildID, p.SizeBytes, p.SHA256,
		); err != nil {
			return fmt.Errorf("insert part: %w", err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs, newest first, with their parts.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, region, endpoint, bundle_path, outcome,
  status, body, key_fingerprint, slices_attempted, slices_failed, slices_empty
FROM upload_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt string
			outcome   string
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.Region, &run.Endpoint, &run.BundlePath, &outcome,
			&run.Status, &run.Body, &run.KeyFingerprint, &run.SlicesAttempted, &run.SlicesFailed, &run.SlicesEmpty); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		if run.Outcome, err = models.ParseUploadOutcome(outcome); err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range runs {
		parts, err := s.parts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Parts = parts
	}
	return runs, nil
}

func (s *Store) parts(ctx context.Context, runID string) ([]Part, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT field, arch, build_id, size_bytes, sha256 FROM upload_parts WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.Field, &p.Arch, &p.BuildID, &p.SizeBytes, &p.SHA256); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// FindByBuildID returns the runs that sent symbols for buildID, newest first.
func (s *Store) FindByBuildID(ctx context.Context, buildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT r.id FROM upload_runs r
JOIN upload_parts p ON p.run_id = r.id
WHERE p.build_id = ? COLLATE NOCASE
ORDER BY r.created_at DESC`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
