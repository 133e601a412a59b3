// Package testelf builds synthetic ELF64 images for tests.
package testelf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
)

const PhOff = 0x40

// Image describes an ELF file to synthesize. The program-header table is
// placed right after the ELF header. Every byte outside the headers is filled
// with a position-dependent pattern so copied content can be recognized.
type Image struct {
	Class   elf.Class
	Type    elf.Type
	Machine elf.Machine
	Progs   []elf.ProgHeader

	// Size is the minimum file size. The file always covers the headers and
	// every segment's file bytes.
	Size uint64
}

// Dso returns a 64-bit x86-64 shared object with the given program headers.
func Dso(progs ...elf.ProgHeader) Image {
	return Image{
		Class:   elf.ELFCLASS64,
		Type:    elf.ET_DYN,
		Machine: elf.EM_X86_64,
		Progs:   progs,
	}
}

func Load(off, vaddr, filesz, memsz uint64, flags elf.ProgFlag) elf.ProgHeader {
	return elf.ProgHeader{
		Type:   elf.PT_LOAD,
		Flags:  flags,
		Off:    off,
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: filesz,
		Memsz:  memsz,
		Align:  0x1000,
	}
}

func Null() elf.ProgHeader {
	return elf.ProgHeader{Type: elf.PT_NULL}
}

// Nulls returns n PT_NULL entries.
func Nulls(n int) []elf.ProgHeader {
	ret := make([]elf.ProgHeader, n)
	for i := range ret {
		ret[i] = Null()
	}
	return ret
}

// Pattern is the filler byte at file offset off.
func Pattern(off uint64) byte {
	return byte(off*31 + 7)
}

func (img Image) Bytes() []byte {
	size := max(img.Size, PhOff+uint64(len(img.Progs))*56)
	for _, p := range img.Progs {
		size = max(size, p.Off+p.Filesz)
	}

	buf := make([]byte, size)
	for i := range buf {
		buf[i] = Pattern(uint64(i))
	}

	hdr := elf.Header64{
		Type:      uint16(img.Type),
		Machine:   uint16(img.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Phoff:     PhOff,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     uint16(len(img.Progs)),
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(img.Class)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	out := &bytes.Buffer{}
	binary.Write(out, binary.LittleEndian, hdr)
	for _, p := range img.Progs {
		binary.Write(out, binary.LittleEndian, elf.Prog64{
			Type:   uint32(p.Type),
			Flags:  uint32(p.Flags),
			Off:    p.Off,
			Vaddr:  p.Vaddr,
			Paddr:  p.Paddr,
			Filesz: p.Filesz,
			Memsz:  p.Memsz,
			Align:  p.Align,
		})
	}
	copy(buf, out.Bytes())
	return buf
}

func (img Image) WriteFile(path string) error {
	return os.WriteFile(path, img.Bytes(), 0o644)
}
