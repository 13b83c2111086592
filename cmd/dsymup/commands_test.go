package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dsymup/internal/apperr"
	"dsymup/internal/config"
)

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	t.Setenv(logLevelEnvKey, "")
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })

	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return buf.String(), err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.History.DBPath = filepath.Join(t.TempDir(), "history.db")
	return &cfg
}

func TestRegionsJSON(t *testing.T) {
	cfg := testConfig(t)
	cfg.Regions = map[string]string{"eu": "api.example.eu"}

	out, err := runCLI(t, cfg, "regions", "--json")
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	var entries []regionEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := map[string]string{"cn": "api.leancloud.cn", "eu": "api.example.eu", "us": "api.avoscloud.us"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d regions, got %v", len(want), entries)
	}
	for _, e := range entries {
		if want[e.Code] != e.Domain {
			t.Fatalf("unexpected region %#v", e)
		}
		if e.Default != (e.Code == "cn") {
			t.Fatalf("unexpected default flag on %#v", e)
		}
	}
}

func TestSlicesSkipsNonBinaries(t *testing.T) {
	bundle := t.TempDir()
	if err := os.WriteFile(filepath.Join(bundle, "Info.plist"), []byte("<plist/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCLI(t, testConfig(t), "slices", bundle)
	if err != nil {
		t.Fatalf("slices: %v", err)
	}
	if strings.TrimSpace(out) != "no binaries found" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestUploadRequiresDestination(t *testing.T) {
	bundle := t.TempDir()
	_, err := runCLI(t, testConfig(t), "upload", bundle, "--dest", filepath.Join(bundle, "missing"), "--id", "a", "--key", "b")
	if !apperr.IsValidation(err) || !strings.Contains(err.Error(), "Destination path not found") {
		t.Fatalf("expected destination validation error, got %v", err)
	}
}

func TestUploadNoOpForEmptyBundle(t *testing.T) {
	bundle := t.TempDir()
	dest := t.TempDir()
	cfg := testConfig(t)

	out, err := runCLI(t, cfg, "upload", bundle, "--dest", dest, "--id", "a", "--key", "b", "--json")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, `"outcome":"noop"`) {
		t.Fatalf("expected noop outcome, got %q", out)
	}

	out, err = runCLI(t, cfg, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "noop") || !strings.Contains(out, bundle) {
		t.Fatalf("expected recorded noop run, got %q", out)
	}
}

func TestRejectsJSONAndYAMLTogether(t *testing.T) {
	if _, err := runCLI(t, testConfig(t), "regions", "--json", "--yaml"); err == nil {
		t.Fatal("expected mutually exclusive flag error")
	}
}

func TestBundleArgRequired(t *testing.T) {
	_, err := runCLI(t, testConfig(t), "slices")
	if err == nil || err.Error() != "bundle path is required" {
		t.Fatalf("expected bundle argument error, got %v", err)
	}
}

func TestUploadValidationFailureLeavesNoHistory(t *testing.T) {
	bundle := t.TempDir()
	dest := t.TempDir()
	tests := map[string][]string{
		"missing credentials": {"upload", bundle, "--dest", dest, "--id", "", "--key", ""},
		"unknown region":      {"upload", bundle, "--dest", dest, "--id", "a", "--key", "b", "--region", "mars"},
		"missing destination": {"upload", bundle, "--dest", filepath.Join(dest, "missing"), "--id", "a", "--key", "b"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			stateDir := filepath.Join(t.TempDir(), "state")
			cfg := config.Default()
			cfg.History.DBPath = filepath.Join(stateDir, "history.db")

			_, err := runCLI(t, &cfg, args...)
			if !apperr.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, err := os.Stat(stateDir); !os.IsNotExist(err) {
				t.Fatalf("expected no history directory after validation failure, stat err=%v", err)
			}
		})
	}
}

func TestUploadCreatesHistoryAfterValidation(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")
	cfg := config.Default()
	cfg.History.DBPath = filepath.Join(stateDir, "history.db")

	if _, err := runCLI(t, &cfg, "upload", t.TempDir(), "--dest", t.TempDir(), "--id", "a", "--key", "b"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(cfg.History.DBPath); err != nil {
		t.Fatalf("expected history db after a validated run: %v", err)
	}
}
