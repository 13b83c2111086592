// Package probe discovers architecture slices and build identifiers in binaries.
package probe

import (
	"context"
	"os/exec"
)

// Arch is one architecture slice reported by a probe.
type Arch struct {
	Name string
	UUID string
}

// Probe reports the architecture slices in the file at path.
// An empty result means the file is not a recognized binary.
type Probe interface {
	Probe(ctx context.Context, path string) ([]Arch, error)
}

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec, discarding standard error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
