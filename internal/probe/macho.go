package probe

import (
	"context"
	"debug/macho"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

const (
	loadCmdUUID    macho.LoadCmd = 0x1b
	cpuArm64_32    macho.Cpu     = 0x0200000c
	cpuSubtypeMask uint32        = 0x00ffffff
)

// MachO probes files natively by parsing thin and universal Mach-O headers.
type MachO struct{}

// NewMachO returns the native Mach-O probe.
func NewMachO() *MachO {
	return &MachO{}
}

func (p *MachO) Probe(ctx context.Context, path string) ([]Arch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fat, err := macho.OpenFat(path)
	switch {
	case err == nil:
		defer fat.Close()
		arches := make([]Arch, 0, len(fat.Arches))
		for _, fa := range fat.Arches {
			if a, ok := sliceArch(path, fa.File, fa.FatArchHeader.Cpu, fa.FatArchHeader.SubCpu); ok {
				arches = append(arches, a)
			}
		}
		return arches, nil
	case errors.Is(err, macho.ErrNotFat):
		// thin binary, opened below
	default:
		return nil, nil
	}

	f, err := macho.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()
	if a, ok := sliceArch(path, f, f.Cpu, f.SubCpu); ok {
		return []Arch{a}, nil
	}
	return nil, nil
}

func sliceArch(path string, f *macho.File, cpu macho.Cpu, sub uint32) (Arch, bool) {
	name := ArchName(cpu, sub)
	id, ok := buildUUID(f)
	if !ok {
		slog.Debug("mach-o slice has no LC_UUID", "file", path, "arch", name)
		return Arch{}, false
	}
	return Arch{Name: name, UUID: id}, true
}

func buildUUID(f *macho.File) (string, bool) {
	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) < 24 {
			continue
		}
		if macho.LoadCmd(f.ByteOrder.Uint32(raw[0:4])) != loadCmdUUID {
			continue
		}
		id, err := uuid.FromBytes(raw[8:24])
		if err != nil {
			return "", false
		}
		return strings.ToUpper(id.String()), true
	}
	return "", false
}

// ArchName returns the conventional architecture name for a CPU type and subtype.
func ArchName(cpu macho.Cpu, sub uint32) string {
	sub &= cpuSubtypeMask
	switch cpu {
	case macho.Cpu386:
		return "i386"
	case macho.CpuAmd64:
		if sub == 8 {
			return "x86_64h"
		}
		return "x86_64"
	case macho.CpuArm:
		switch sub {
		case 6:
			return "armv6"
		case 9:
			return "armv7"
		case 10:
			return "armv7f"
		case 11:
			return "armv7s"
		case 12:
			return "armv7k"
		case 14:
			return "armv6m"
		case 15:
			return "armv7m"
		case 16:
			return "armv7em"
		default:
			return "arm"
		}
	case macho.CpuArm64:
		if sub == 2 {
			return "arm64e"
		}
		return "arm64"
	case cpuArm64_32:
		return "arm64_32"
	case macho.CpuPpc:
		return "ppc"
	case macho.CpuPpc64:
		return "ppc64"
	default:
		return fmt.Sprintf("cpu%d", uint32(cpu))
	}
}
