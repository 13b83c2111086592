package probe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDwarfdumpUUIDs(t *testing.T) {
	out := []byte(`UUID: 0bd3a4f1-9c3e-3b6f-8f4e-3a1b2c3d4e5f (armv7) /tmp/App.dSYM/Contents/Resources/DWARF/App
UUID: 1CE2B5A2-0D4F-4C70-9F5F-4B2C3D4E5F60 (arm64) /tmp/App.dSYM/Contents/Resources/DWARF/App
warning: something unrelated
UUID: broken
`)
	got := ParseDwarfdumpUUIDs(out)
	want := []Arch{
		{Name: "armv7", UUID: "0BD3A4F1-9C3E-3B6F-8F4E-3A1B2C3D4E5F"},
		{Name: "arm64", UUID: "1CE2B5A2-0D4F-4C70-9F5F-4B2C3D4E5F60"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("arches mismatch (-want +got):\n%s", diff)
	}
}

func TestToolProbe(t *testing.T) {
	var calls []string
	p := &Tool{
		Lipo:      "lipo",
		Dwarfdump: "dwarfdump",
		Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			calls = append(calls, name+" "+strings.Join(args, " "))
			switch {
			case name == "lipo" && args[1] == "/bundle/App":
				return []byte("Architectures in the fat file: /bundle/App are: armv7 arm64\n"), nil
			case name == "lipo":
				return nil, errors.New("exit status 1")
			case name == "dwarfdump":
				return []byte("UUID: AAAA (armv7) /bundle/App\nUUID: BBBB (arm64) /bundle/App\n"), nil
			}
			return nil, errors.New("unexpected command")
		},
	}

	got, err := p.Probe(context.Background(), "/bundle/App")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if diff := cmp.Diff([]Arch{{Name: "armv7", UUID: "AAAA"}, {Name: "arm64", UUID: "BBBB"}}, got); diff != "" {
		t.Fatalf("arches mismatch (-want +got):\n%s", diff)
	}

	got, err = p.Probe(context.Background(), "/bundle/Info.plist")
	if err != nil {
		t.Fatalf("probe plist: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected non-binary to be skipped, got %v", got)
	}

	wantCalls := []string{
		"lipo -info /bundle/App",
		"dwarfdump --uuid /bundle/App",
		"lipo -info /bundle/Info.plist",
	}
	if diff := cmp.Diff(wantCalls, calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}
