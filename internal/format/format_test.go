package format

import (
	"bytes"
	"strings"
	"testing"
)

type payload struct {
	Arch    string `json:"arch" yaml:"arch"`
	BuildID string `json:"build_id" yaml:"build_id"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, payload{Arch: "arm64", BuildID: "AB"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "{\"arch\":\"arm64\",\"build_id\":\"AB\"}\n" {
		t.Fatalf("unexpected json %q", got)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, []payload{{Arch: "armv7", BuildID: "CD"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "- arch: armv7\n") || !strings.Contains(got, "  build_id: CD\n") {
		t.Fatalf("unexpected yaml %q", got)
	}
}

func TestForName(t *testing.T) {
	if _, ok := mustFormatter(t, "JSON").(JSONFormatter); !ok {
		t.Fatal("expected json formatter")
	}
	if _, ok := mustFormatter(t, "yml").(YAMLFormatter); !ok {
		t.Fatal("expected yaml formatter")
	}
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func mustFormatter(t *testing.T, name string) Formatter {
	t.Helper()
	f, err := ForName(name)
	if err != nil {
		t.Fatalf("formatter %s: %v", name, err)
	}
	return f
}
