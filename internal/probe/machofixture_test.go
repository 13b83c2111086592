package probe

import (
	"debug/macho"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const (
	magic32 = 0xfeedface
	magic64 = 0xfeedfacf
	mhDSYM  = 0xa
)

type fixtureSlice struct {
	cpu  macho.Cpu
	sub  uint32
	uuid [16]byte
}

// thinMachO builds a minimal little-endian Mach-O image carrying only LC_UUID.
func thinMachO(s fixtureSlice) []byte {
	is64 := s.cpu&0x01000000 != 0
	le := binary.LittleEndian
	var buf []byte
	put := func(v uint32) { buf = le.AppendUint32(buf, v) }

	if is64 {
		put(magic64)
	} else {
		put(magic32)
	}
	put(uint32(s.cpu))
	put(s.sub)
	put(mhDSYM)
	put(1)  // ncmds
	put(24) // sizeofcmds
	put(0)  // flags
	if is64 {
		put(0) // reserved
	}
	put(uint32(loadCmdUUID))
	put(24)
	buf = append(buf, s.uuid[:]...)
	return buf
}

// fatMachO wraps thin images in a universal header, page aligned.
func fatMachO(slices ...fixtureSlice) []byte {
	be := binary.BigEndian
	const align = 0x1000
	var header []byte
	header = be.AppendUint32(header, macho.MagicFat)
	header = be.AppendUint32(header, uint32(len(slices)))

	images := make([][]byte, len(slices))
	offset := uint32(align)
	for i, s := range slices {
		images[i] = thinMachO(s)
		header = be.AppendUint32(header, uint32(s.cpu))
		header = be.AppendUint32(header, s.sub)
		header = be.AppendUint32(header, offset)
		header = be.AppendUint32(header, uint32(len(images[i])))
		header = be.AppendUint32(header, 12)
		offset += align
	}

	out := make([]byte, int(offset))
	copy(out, header)
	pos := align
	for _, img := range images {
		copy(out[pos:], img)
		pos += align
	}
	return out
}

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir fixture dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func uuidBytes(b byte) [16]byte {
	var id [16]byte
	for i := range id {
		id[i] = b + byte(i)
	}
	return id
}
