// Package pipeline runs the scan, dump and upload steps for one bundle.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"dsymup/internal/dump"
	"dsymup/internal/history"
	"dsymup/internal/models"
	"dsymup/internal/region"
	"dsymup/internal/scan"
	"dsymup/internal/staging"
	"dsymup/internal/upload"
)

// Scanner enumerates the slices of a bundle.
type Scanner interface {
	Scan(ctx context.Context, bundlePath string) ([]models.BinarySlice, error)
}

// Uploader transmits staged artifacts.
type Uploader interface {
	Upload(ctx context.Context, artifacts []models.SymbolArtifact, creds models.Credentials, domain string) (models.UploadResult, error)
}

// Recorder persists a summary of each upload.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Request holds the inputs of one invocation.
type Request struct {
	BundlePath  string
	DestDir     string
	Region      string
	Credentials models.Credentials
}

// Report describes what a run discovered, produced and sent.
type Report struct {
	Region    string                  `json:"region,omitempty" yaml:"region,omitempty"`
	Slices    []models.BinarySlice    `json:"slices" yaml:"slices"`
	Artifacts []models.SymbolArtifact `json:"artifacts" yaml:"artifacts"`
	Summary   models.DumpSummary      `json:"summary" yaml:"summary"`
	Result    *models.UploadResult    `json:"result,omitempty" yaml:"result,omitempty"`
}

// Runner wires the pipeline components together.
type Runner struct {
	scanner     Scanner
	dumper      dump.SymbolDumper
	uploader    Uploader
	regions     region.Table
	concurrency int
	recorder    Recorder
	onCommand   func(string)
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of concurrent dumps.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = n }
}

// WithRecorder records every upload attempt.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithCommandEcho reports each external dump invocation before it runs.
func WithCommandEcho(fn func(cmd string)) Option {
	return func(r *Runner) { r.onCommand = fn }
}

// New returns a Runner.
func New(scanner Scanner, dumper dump.SymbolDumper, uploader Uploader, regions region.Table, opts ...Option) *Runner {
	r := &Runner{
		scanner:     scanner,
		dumper:      dumper,
		uploader:    uploader,
		regions:     regions,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates all inputs, then scans, dumps and uploads. Nothing is
// written and no network call is made when validation fails.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	domain, err := r.Validate(req)
	if err != nil {
		return Report{}, err
	}

	report, err := r.dump(ctx, req)
	if err != nil {
		return report, err
	}
	report.Region = req.Region
	if report.Region == "" {
		report.Region = r.regions.Default()
	}

	result, uploadErr := r.uploader.Upload(ctx, report.Artifacts, req.Credentials, domain)
	report.Result = &result
	switch {
	case uploadErr != nil:
		slog.Debug("upload failed", "endpoint", result.Endpoint, "err", uploadErr)
	case result.Outcome == models.OutcomeNoOp:
		slog.Info("no symbol files to upload", "bundle", req.BundlePath)
	default:
		slog.Info("symbol files uploaded", "endpoint", result.Endpoint, "parts", len(result.Parts))
	}

	r.record(ctx, req, report)
	return report, uploadErr
}

// Validate checks every input of an upload and returns the resolved backend
// domain. It reads the filesystem but never writes to it.
func (r *Runner) Validate(req Request) (string, error) {
	if err := scan.CheckBundle(req.BundlePath); err != nil {
		return "", err
	}
	if err := staging.Check(req.DestDir); err != nil {
		return "", err
	}
	if err := upload.ValidateCredentials(req.Credentials); err != nil {
		return "", err
	}
	return r.regions.Resolve(req.Region)
}

// DumpOnly validates the bundle and destination, then scans and dumps
// without uploading.
func (r *Runner) DumpOnly(ctx context.Context, req Request) (Report, error) {
	if err := scan.CheckBundle(req.BundlePath); err != nil {
		return Report{}, err
	}
	if err := staging.Check(req.DestDir); err != nil {
		return Report{}, err
	}
	return r.dump(ctx, req)
}

// Slices lists the slices of a bundle without dumping anything.
func (r *Runner) Slices(ctx context.Context, bundlePath string) ([]models.BinarySlice, error) {
	return r.scanner.Scan(ctx, bundlePath)
}

func (r *Runner) dump(ctx context.Context, req Request) (Report, error) {
	slices, err := r.scanner.Scan(ctx, req.BundlePath)
	if err != nil {
		return Report{}, err
	}
	report := Report{Slices: slices}
	if len(slices) == 0 {
		slog.Warn("no binaries found in bundle", "bundle", req.BundlePath)
	}

	area, err := staging.Open(req.DestDir)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := area.Close(); err != nil {
			slog.Debug("staging cleanup failed", "root", area.Root(), "err", err)
		}
	}()

	orch := dump.NewOrchestrator(r.dumper, area, r.concurrency)
	orch.OnCommand = r.onCommand
	report.Artifacts, report.Summary = orch.Dump(ctx, slices)

	switch {
	case report.Summary.AllFailed():
		slog.Warn("no slice produced symbols", "attempted", report.Summary.Attempted, "failed", report.Summary.Failed)
	case report.Summary.Partial():
		slog.Warn("some slices produced no symbols",
			"attempted", report.Summary.Attempted,
			"succeeded", report.Summary.Succeeded,
			"empty", report.Summary.Empty,
			"failed", report.Summary.Failed)
	}
	return report, nil
}

func (r *Runner) record(ctx context.Context, req Request, report Report) {
	if r.recorder == nil || report.Result == nil {
		return
	}
	result := report.Result
	run := history.Run{
		ID:              history.NewRunID(),
		CreatedAt:       time.Now().UTC(),
		Region:          report.Region,
		Endpoint:        result.Endpoint,
		BundlePath:      req.BundlePath,
		Outcome:         result.Outcome,
		Status:          result.Status,
		Body:            result.Body,
		KeyFingerprint:  history.KeyFingerprint(req.Credentials.AppKey),
		SlicesAttempted: report.Summary.Attempted,
		SlicesFailed:    report.Summary.Failed,
		SlicesEmpty:     report.Summary.Empty,
	}
	// Parts are the files the backend actually received; a transport
	// failure means it received none.
	if result.Status != 0 {
		for _, art := range result.Sent {
			sum, err := staging.Checksum(art)
			if err != nil {
				slog.Debug("checksum failed", "path", art.Path, "err", err)
			}
			run.Parts = append(run.Parts, history.Part{
				Field:     models.PartField(art.Arch),
				Arch:      art.Arch,
				BuildID:   art.BuildID,
				SizeBytes: art.Size,
				SHA256:    sum,
			})
		}
	}
	if err := r.recorder.Record(ctx, run); err != nil {
		slog.Warn("failed to record upload history", "err", err)
	}
}
