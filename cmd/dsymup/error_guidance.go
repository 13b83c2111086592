package main

import (
	"context"
	"errors"
	"net"
	"strings"

	"dsymup/internal/apperr"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var serverErr *apperr.ServerError
	if errors.As(err, &serverErr) {
		switch {
		case serverErr.Status == 401 || serverErr.Status == 403:
			lines = append(lines, "hint: verify --id and --key (or DSYMUP_APP_ID and DSYMUP_APP_KEY).")
		case serverErr.Status >= 500:
			lines = append(lines, "hint: the backend returned an internal error; retry later.")
		case serverErr.Status >= 200 && serverErr.Status < 300:
			lines = append(lines, "hint: the backend answered without confirming the upload; check the response body above.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.Canceled) {
		lines = append(lines, "hint: interrupted; staged symbol files were left in the destination directory.")
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; increase upload.timeout with: dsymup config set upload.timeout 5m")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: check network access to the region's backend.",
			"hint: list known regions with: dsymup regions",
		)
		return uniqueLines(lines)
	}

	if apperr.IsValidation(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "application id not found"), strings.Contains(msg, "application key not found"):
			lines = append(lines, "hint: pass --id and --key, or set them with: dsymup config set app_id <id>")
		case strings.Contains(msg, "unsupported server region"):
			lines = append(lines, "hint: list known regions with: dsymup regions")
		case strings.Contains(msg, "Destination path not found"):
			lines = append(lines, "hint: create the destination directory first; it is never created automatically.")
		}
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
