package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dsymup/internal/history"
	"dsymup/internal/models"
	"dsymup/internal/pipeline"
)

var stdout io.Writer = os.Stdout

func writeStructured(output *outputOptions, payload any) (bool, error) {
	f := output.formatter()
	if f == nil {
		return false, nil
	}
	return true, f.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeSliceList(slices []models.BinarySlice) error {
	if len(slices) == 0 {
		return writePlain("no binaries found\n")
	}
	for _, s := range slices {
		if err := writePlain("%s\n", formatSliceLine(s)); err != nil {
			return err
		}
	}
	return nil
}

func formatSliceLine(s models.BinarySlice) string {
	return fmt.Sprintf("%-8s %s %s", s.Arch, strings.ToUpper(s.BuildID), s.File)
}

func writeReport(report pipeline.Report) error {
	lines := []string{
		fmt.Sprintf("slices: %d", len(report.Slices)),
		fmt.Sprintf("dumped: %d succeeded, %d empty, %d failed",
			report.Summary.Succeeded, report.Summary.Empty, report.Summary.Failed),
	}
	for _, art := range report.Artifacts {
		state := "ok"
		switch {
		case art.Err != nil:
			state = "failed: " + art.Err.Error()
		case !art.Valid():
			state = "empty"
		}
		lines = append(lines, fmt.Sprintf("  %-8s %s %s (%s)", art.Arch, art.BuildID, art.Path, state))
	}

	if r := report.Result; r != nil {
		switch r.Outcome {
		case models.OutcomeNoOp:
			lines = append(lines, "upload: nothing to upload")
		case models.OutcomeSuccess:
			lines = append(lines, fmt.Sprintf("upload: %d symbol files sent to %s", len(r.Parts), r.Endpoint))
		default:
			lines = append(lines, fmt.Sprintf("upload: failed (%s)", r.Endpoint))
		}
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeRunList(runs []history.Run) error {
	if len(runs) == 0 {
		return writePlain("no uploads recorded\n")
	}
	for _, run := range runs {
		if err := writePlain("%s\n", formatRunLine(run)); err != nil {
			return err
		}
	}
	return nil
}

func formatRunLine(run history.Run) string {
	line := fmt.Sprintf("%s %-7s [%s] parts=%d %s",
		formatTime(run.CreatedAt), run.Outcome, run.Region, len(run.Parts), run.BundlePath)
	if run.Outcome == models.OutcomeFailed && run.Status != 0 {
		line += fmt.Sprintf(" (status %d)", run.Status)
	}
	return line
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
