package linker

import (
	"debug/elf"

	"github.com/ksco/sboxld/pkg/utils"
)

// Image is a validated, read-only view of a 64-bit ELF shared object.
type Image struct {
	File *File

	ehdr  Ehdr
	phdrs []Phdr
}

// OpenImage maps filename and validates it. On failure nothing stays mapped.
func OpenImage(filename string) (*Image, error) {
	file, err := OpenFile(filename)
	if err != nil {
		return nil, err
	}

	img, err := NewImage(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return img, nil
}

// NewImage validates file as an ELF64 little-endian ET_DYN image and decodes
// its program-header table.
func NewImage(file *File) (*Image, error) {
	contents := file.Contents
	if !CheckMagic(contents) {
		return nil, invalidImage(file.Name, "not an ELF file")
	}
	if uint64(len(contents)) < EhdrSize {
		return nil, invalidImage(file.Name, "file too small")
	}
	if class := elf.Class(contents[elf.EI_CLASS]); class != elf.ELFCLASS64 {
		return nil, invalidImage(file.Name, "unsupported ELF class %s", class)
	}
	if data := elf.Data(contents[elf.EI_DATA]); data != elf.ELFDATA2LSB {
		return nil, invalidImage(file.Name, "unsupported data encoding %s", data)
	}
	if ft := GetFileType(contents); ft != FileTypeDso {
		return nil, invalidImage(file.Name, "%s is not a shared object", FileTypeStringer{ft})
	}

	ehdr, err := utils.Read[Ehdr](contents)
	if err != nil {
		return nil, invalidImage(file.Name, "reading ELF header: %v", err)
	}

	img := &Image{File: file, ehdr: ehdr}
	if ehdr.PhNum == 0 {
		return img, nil
	}
	if uint64(ehdr.PhEntSize) != PhdrSize {
		return nil, invalidImage(file.Name, "unexpected program header size %d", ehdr.PhEntSize)
	}

	tableSize := uint64(ehdr.PhNum) * PhdrSize
	table, ok := img.Bytes(ehdr.PhOff, tableSize)
	if !ok {
		return nil, invalidImage(file.Name, "program header table is out of range: %#x+%#x", ehdr.PhOff, tableSize)
	}

	img.phdrs = make([]Phdr, 0, ehdr.PhNum)
	for len(table) > 0 {
		phdr, err := utils.Read[Phdr](table)
		if err != nil {
			return nil, invalidImage(file.Name, "reading program header: %v", err)
		}
		img.phdrs = append(img.phdrs, phdr)
		table = table[PhdrSize:]
	}
	return img, nil
}

func (i *Image) Name() string {
	return i.File.Name
}

func (i *Image) Ehdr() Ehdr {
	return i.ehdr
}

// Phdrs returns a copy of the program-header table.
func (i *Image) Phdrs() []Phdr {
	return append([]Phdr(nil), i.phdrs...)
}

func (i *Image) Size() uint64 {
	return uint64(len(i.File.Contents))
}

func (i *Image) Contents() []byte {
	return i.File.Contents
}

// Bytes returns contents[off:off+size], or false if the range leaves the file.
func (i *Image) Bytes(off, size uint64) ([]byte, bool) {
	end, ok := utils.CheckedAdd(off, size)
	if !ok || end > uint64(len(i.File.Contents)) {
		return nil, false
	}
	return i.File.Contents[off:end], true
}

func (i *Image) Close() error {
	return i.File.Close()
}
