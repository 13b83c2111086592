package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"dsymup/internal/config"
	"dsymup/internal/dump"
	"dsymup/internal/history"
	"dsymup/internal/pipeline"
	"dsymup/internal/probe"
	"dsymup/internal/region"
	"dsymup/internal/scan"
	"dsymup/internal/upload"
)

func newProbe(cfg *config.Config) probe.Probe {
	if cfg.Dump.Probe == config.ProbeTool {
		return probe.NewTool(cfg.Dump.Lipo, cfg.Dump.Dwarfdump)
	}
	return probe.NewMachO()
}

func regionTable(cfg *config.Config) region.Table {
	return region.DefaultTable().Merge(cfg.Regions)
}

type runnerOptions struct {
	verbose bool
	echo    io.Writer
	history bool
}

// withRunner builds a pipeline runner from cfg and hands it to fn. The
// history store, when enabled, stays open for the duration of fn.
func withRunner(cfg *config.Config, opts runnerOptions, fn func(*pipeline.Runner) error) error {
	client := upload.NewClient(cfg.APIVersion, upload.WithTimeout(cfg.Upload.Timeout.Duration))
	dumper := dump.NewTool(cfg.Dump.DumpSyms, cfg.Dump.Timeout.Duration)

	runnerOpts := []pipeline.Option{pipeline.WithConcurrency(cfg.Dump.Concurrency)}
	if opts.verbose && opts.echo != nil {
		runnerOpts = append(runnerOpts, pipeline.WithCommandEcho(func(cmd string) {
			fmt.Fprintln(opts.echo, cmd)
		}))
	}

	if opts.history && cfg.History.Enabled {
		rec := &lazyHistory{path: cfg.History.DBPath}
		defer func() {
			if err := rec.Close(); err != nil {
				slog.Debug("closing upload history failed", "path", rec.path, "err", err)
			}
		}()
		runnerOpts = append(runnerOpts, pipeline.WithRecorder(rec))
	}

	runner := pipeline.New(scan.New(newProbe(cfg)), dumper, client, regionTable(cfg), runnerOpts...)
	return fn(runner)
}

// lazyHistory opens the history store on the first Record. Runs rejected by
// validation never record, so they leave no database or directory behind.
type lazyHistory struct {
	path string
	st   *history.Store
}

func (h *lazyHistory) Record(ctx context.Context, run history.Run) error {
	if h.st == nil {
		st, err := history.Open(h.path)
		if err != nil {
			return err
		}
		h.st = st
	}
	return h.st.Record(ctx, run)
}

func (h *lazyHistory) Close() error {
	if h.st == nil {
		return nil
	}
	return h.st.Close()
}
