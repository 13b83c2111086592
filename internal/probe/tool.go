package probe

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strings"
)

// Tool probes files with the Xcode command line tools: lipo decides whether a
// file is Mach-O at all, dwarfdump lists its UUIDs per architecture.
type Tool struct {
	Lipo      string
	Dwarfdump string
	Run       Runner
}

// NewTool returns a Tool probe using the given executables.
func NewTool(lipo, dwarfdump string) *Tool {
	return &Tool{Lipo: lipo, Dwarfdump: dwarfdump, Run: ExecRunner}
}

func (p *Tool) Probe(ctx context.Context, path string) ([]Arch, error) {
	run := p.Run
	if run == nil {
		run = ExecRunner
	}

	info, err := run(ctx, p.Lipo, "-info", path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil || len(bytes.TrimSpace(info)) == 0 {
		return nil, nil
	}

	out, err := run(ctx, p.Dwarfdump, "--uuid", path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		slog.Debug("dwarfdump failed", "file", path, "err", err)
		return nil, nil
	}
	return ParseDwarfdumpUUIDs(out), nil
}

// ParseDwarfdumpUUIDs parses `dwarfdump --uuid` output lines of the form
// "UUID: <uuid> (<arch>) <path>".
func ParseDwarfdumpUUIDs(out []byte) []Arch {
	var arches []Arch
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "UUID") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		arch := strings.TrimSuffix(strings.TrimPrefix(fields[2], "("), ")")
		if arch == "" {
			continue
		}
		arches = append(arches, Arch{Name: arch, UUID: strings.ToUpper(fields[1])})
	}
	return arches
}
