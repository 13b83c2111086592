package main

import (
	"context"
	"fmt"
	"net"
	"testing"

	"dsymup/internal/apperr"
)

func TestFormatCLIError_ServerAuthGuidance(t *testing.T) {
	err := apperr.Server("upload", 401, `{"error":"unauthorized"}`)
	lines := formatCLIError(err)
	if lines[0] != `upload: server responded 401: {"error":"unauthorized"}` {
		t.Fatalf("expected verbatim server body first, got %v", lines)
	}
	if !containsLine(lines, "hint: verify --id and --key (or DSYMUP_APP_ID and DSYMUP_APP_KEY).") {
		t.Fatalf("expected credential guidance, got %v", lines)
	}
}

func TestFormatCLIError_ServerUnconfirmedGuidance(t *testing.T) {
	lines := formatCLIError(apperr.Server("upload", 200, `{"ok":true}`))
	if !containsLine(lines, "hint: the backend answered without confirming the upload; check the response body above.") {
		t.Fatalf("expected unconfirmed guidance, got %v", lines)
	}
}

func TestFormatCLIError_TransportGuidance(t *testing.T) {
	err := apperr.Transport("upload", &net.DNSError{Err: "no such host", Name: "api.example"})
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: check network access to the region's backend.") {
		t.Fatalf("expected network guidance, got %v", lines)
	}
}

func TestFormatCLIError_TimeoutGuidance(t *testing.T) {
	lines := formatCLIError(fmt.Errorf("upload: %w", context.DeadlineExceeded))
	if !containsLine(lines, "hint: request timed out; increase upload.timeout with: dsymup config set upload.timeout 5m") {
		t.Fatalf("expected timeout guidance, got %v", lines)
	}
}

func TestFormatCLIError_ValidationGuidance(t *testing.T) {
	tests := map[string]error{
		"hint: pass --id and --key, or set them with: dsymup config set app_id <id>":           apperr.Validation("upload", "application key not found"),
		"hint: list known regions with: dsymup regions":                                         apperr.Validationf("region", "unsupported server region %q", "mars"),
		"hint: create the destination directory first; it is never created automatically.": apperr.Validation("staging", "Destination path not found"),
	}
	for hint, err := range tests {
		if lines := formatCLIError(err); !containsLine(lines, hint) {
			t.Fatalf("expected %q, got %v", hint, lines)
		}
	}
}

func TestUniqueLines(t *testing.T) {
	got := uniqueLines([]string{"a", "", "b", "a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
