package dump

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"dsymup/internal/models"
	"dsymup/internal/staging"
)

// Orchestrator dumps every slice into a staging area. A failing slice never
// stops the others; its artifact is simply left empty.
type Orchestrator struct {
	dumper      SymbolDumper
	area        *staging.Area
	concurrency int

	// OnCommand, if set, receives the external invocation for each slice
	// before it runs. Only dumpers implementing Describer report one.
	OnCommand func(cmd string)
}

// NewOrchestrator returns an Orchestrator running at most concurrency dumps at once.
func NewOrchestrator(dumper SymbolDumper, area *staging.Area, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{dumper: dumper, area: area, concurrency: concurrency}
}

// Dump attempts every slice and returns one artifact per distinct
// (architecture, build identifier), in input order, plus a summary.
func (o *Orchestrator) Dump(ctx context.Context, slices []models.BinarySlice) ([]models.SymbolArtifact, models.DumpSummary) {
	unique := dedupe(slices)
	artifacts := make([]models.SymbolArtifact, len(unique))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, s := range unique {
		g.Go(func() error {
			artifacts[i] = o.dumpOne(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	summary := models.DumpSummary{Attempted: len(artifacts)}
	for _, art := range artifacts {
		switch {
		case art.Err != nil:
			summary.Failed++
		case art.Valid():
			summary.Succeeded++
		default:
			summary.Empty++
		}
	}
	return artifacts, summary
}

func (o *Orchestrator) dumpOne(ctx context.Context, s models.BinarySlice) (art models.SymbolArtifact) {
	dest, err := o.area.Reserve(s)
	if err != nil {
		art = o.area.Inspect(s)
		art.Err = fmt.Errorf("reserve %s: %w", o.area.PathFor(s), err)
		slog.Debug("symbol dump failed", "arch", s.Arch, "build_id", s.BuildID, "file", s.File, "err", art.Err)
		return art
	}

	if d, ok := o.dumper.(Describer); ok && o.OnCommand != nil {
		o.OnCommand(d.Command(s, dest))
	}

	art, err = o.area.Commit(ctx, s, func(w io.Writer) error {
		return o.safeDump(ctx, s, w)
	})
	if err != nil {
		art.Err = err
		slog.Debug("symbol dump failed", "arch", s.Arch, "build_id", s.BuildID, "file", s.File, "err", err)
		return art
	}
	if !art.Valid() {
		slog.Debug("symbol dump produced no output", "arch", s.Arch, "build_id", s.BuildID, "file", s.File)
		return art
	}
	slog.Debug("symbol dump complete", "arch", s.Arch, "build_id", s.BuildID, "bytes", art.Size)
	return art
}

func (o *Orchestrator) safeDump(ctx context.Context, s models.BinarySlice, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dumper panic: %v", r)
		}
	}()
	return o.dumper.Dump(ctx, s, w)
}

func dedupe(slices []models.BinarySlice) []models.BinarySlice {
	seen := make(map[string]struct{}, len(slices))
	out := make([]models.BinarySlice, 0, len(slices))
	for _, s := range slices {
		key := s.Key()
		if _, ok := seen[key]; ok {
			slog.Debug("skipping duplicate slice", "arch", s.Arch, "build_id", s.BuildID, "file", s.File)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
