// Package dump turns binary slices into staged symbol artifacts.
package dump

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"dsymup/internal/models"
)

// SymbolDumper writes the textual symbol table of one slice to w.
// A non-nil error or empty output both mean the slice has no usable symbols.
type SymbolDumper interface {
	Dump(ctx context.Context, slice models.BinarySlice, w io.Writer) error
}

// Describer is implemented by dumpers that can show the equivalent shell
// invocation for a slice, for verbose output.
type Describer interface {
	Command(slice models.BinarySlice, dest string) string
}

const stderrLimit = 4 << 10

// Tool runs a Breakpad-style dump_syms executable: `dump_syms -a <arch> <file>`.
type Tool struct {
	Path    string
	Timeout time.Duration
}

// NewTool returns a Tool dumper for the executable at path.
func NewTool(path string, timeout time.Duration) *Tool {
	return &Tool{Path: path, Timeout: timeout}
}

func (t *Tool) Dump(ctx context.Context, slice models.BinarySlice, w io.Writer) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	stderr := newHeadBuffer(stderrLimit)
	cmd := exec.CommandContext(ctx, t.Path, t.args(slice)...)
	cmd.Stdout = w
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s -a %s: %w: %s", t.Path, slice.Arch, err, msg)
		}
		return fmt.Errorf("%s -a %s: %w", t.Path, slice.Arch, err)
	}
	return nil
}

func (t *Tool) Command(slice models.BinarySlice, dest string) string {
	parts := []string{shellQuote(t.Path)}
	for _, arg := range t.args(slice) {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ") + " > " + shellQuote(dest) + " 2>/dev/null"
}

func (t *Tool) args(slice models.BinarySlice) []string {
	return []string{"-a", slice.Arch, slice.File}
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// headBuffer keeps the first limit bytes written and silently drops the rest,
// so a chatty tool cannot fail the command through its stderr pipe.
type headBuffer struct {
	buf   []byte
	limit int
}

func newHeadBuffer(limit int) *headBuffer {
	return &headBuffer{limit: limit}
}

func (b *headBuffer) Write(p []byte) (int, error) {
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
	}
	return len(p), nil
}

func (b *headBuffer) String() string {
	return string(b.buf)
}
