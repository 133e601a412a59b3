package linker

import (
	"bytes"
	"debug/elf"
	"fmt"
	"strings"
	"unsafe"
)

const PageSize uint64 = 4096

// GuardSize is the unmapped region reserved in front of the module window.
const GuardSize uint64 = 0x14000

// WindowSize is the span reserved for the module, measured from the first
// module byte.
const WindowSize uint64 = 4 << 30

const (
	EhdrSize = uint64(unsafe.Sizeof(Ehdr{}))
	PhdrSize = uint64(unsafe.Sizeof(Phdr{}))
)

type Ehdr struct {
	Ident     [16]uint8
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrndx  uint16
}

type Phdr struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

func (p *Phdr) IsLoad() bool {
	return p.Type == uint32(elf.PT_LOAD)
}

func (p *Phdr) IsNull() bool {
	return p.Type == uint32(elf.PT_NULL)
}

// End returns the first address past the segment's memory image.
func (p *Phdr) End() uint64 {
	return p.VAddr + p.MemSize
}

func (p Phdr) String() string {
	return fmt.Sprintf("%s off=%#x vaddr=%#x filesz=%#x memsz=%#x flags=%s align=%#x",
		elf.ProgType(p.Type), p.Offset, p.VAddr, p.FileSize, p.MemSize,
		phdrFlagsString(p.Flags), p.Align)
}

func phdrFlagsString(flags uint32) string {
	var sb strings.Builder
	for _, f := range []struct {
		bit  elf.ProgFlag
		name byte
	}{{elf.PF_R, 'R'}, {elf.PF_W, 'W'}, {elf.PF_X, 'X'}} {
		if flags&uint32(f.bit) != 0 {
			sb.WriteByte(f.name)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func CheckMagic(contents []byte) bool {
	return bytes.HasPrefix(contents, []byte(elf.ELFMAG))
}
