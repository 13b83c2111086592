package probe

import (
	"context"
	"debug/macho"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMachOProbeThin(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "App", thinMachO(fixtureSlice{cpu: macho.CpuArm64, sub: 0, uuid: uuidBytes(0x10)}))

	got, err := NewMachO().Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	want := []Arch{{Name: "arm64", UUID: "10111213-1415-1617-1819-1A1B1C1D1E1F"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("arches mismatch (-want +got):\n%s", diff)
	}
}

func TestMachOProbeFat(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "App", fatMachO(
		fixtureSlice{cpu: macho.CpuArm, sub: 9, uuid: uuidBytes(0x00)},
		fixtureSlice{cpu: macho.CpuArm64, sub: 0, uuid: uuidBytes(0x20)},
	))

	got, err := NewMachO().Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	want := []Arch{
		{Name: "armv7", UUID: "00010203-0405-0607-0809-0A0B0C0D0E0F"},
		{Name: "arm64", UUID: "20212223-2425-2627-2829-2A2B2C2D2E2F"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("arches mismatch (-want +got):\n%s", diff)
	}
}

func TestMachOProbeSkipsNonBinary(t *testing.T) {
	dir := t.TempDir()
	for name, data := range map[string][]byte{
		"Info.plist": []byte("<?xml version=\"1.0\"?><plist/>"),
		"empty":      nil,
		"short":      {0xfe},
	} {
		path := writeFixture(t, dir, name, data)
		got, err := NewMachO().Probe(context.Background(), path)
		if err != nil {
			t.Fatalf("probe %s: %v", name, err)
		}
		if len(got) != 0 {
			t.Fatalf("expected %s to be unrecognized, got %v", name, got)
		}
	}
}

func TestMachOProbeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMachO().Probe(ctx, "/does/not/matter"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestArchName(t *testing.T) {
	tests := []struct {
		cpu  macho.Cpu
		sub  uint32
		want string
	}{
		{macho.Cpu386, 3, "i386"},
		{macho.CpuAmd64, 3, "x86_64"},
		{macho.CpuAmd64, 8, "x86_64h"},
		{macho.CpuArm, 9, "armv7"},
		{macho.CpuArm, 11, "armv7s"},
		{macho.CpuArm, 12, "armv7k"},
		{macho.CpuArm64, 0, "arm64"},
		{macho.CpuArm64, 0x80000002, "arm64e"},
		{cpuArm64_32, 1, "arm64_32"},
		{macho.Cpu(99), 0, "cpu99"},
	}
	for _, tt := range tests {
		if got := ArchName(tt.cpu, tt.sub); got != tt.want {
			t.Fatalf("ArchName(%v, %#x): expected %q, got %q", tt.cpu, tt.sub, tt.want, got)
		}
	}
}
