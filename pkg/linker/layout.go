package linker

import (
	"debug/elf"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ksco/sboxld/pkg/utils"
)

// Layout is the placement of the module window past the host's image.
//
//	WindowBase  guard        GuardSize, no access
//	            rw-guard     one page, read-write
//	Base        module[i]    Base + module vaddr, in module order
//	            trailing     up to Base + WindowSize + GuardSize
//	End
type Layout struct {
	// HostEnd is the highest vaddr+memsz among the host's PT_LOAD segments.
	HostEnd    uint64
	WindowBase uint64
	Base       uint64
	End        uint64

	// EmbedBase is the file offset the module's bytes are placed at.
	EmbedBase uint64

	Chunks []Chunker
}

func (l *Layout) ContentChunks() []*ContentChunk {
	var ret []*ContentChunk
	for _, chunk := range l.Chunks {
		if c, ok := chunk.(*ContentChunk); ok {
			ret = append(ret, c)
		}
	}
	return ret
}

func overflow(format string, args ...any) error {
	return errors.Wrapf(ErrAllocationOverflow, format, args...)
}

func hostEnd(host *Image) (uint64, error) {
	loads := lo.Filter(host.Phdrs(), func(p Phdr, _ int) bool {
		return p.IsLoad()
	})

	end := uint64(0)
	for _, p := range loads {
		e, ok := utils.CheckedAdd(p.VAddr, p.MemSize)
		if !ok {
			return 0, overflow("host segment at %#x with size %#x", p.VAddr, p.MemSize)
		}
		end = max(end, e)
	}
	return end, nil
}

// NewLayout places the module's PT_LOAD segments after the host's highest
// occupied address. It reads both images but modifies neither.
func NewLayout(host, module *Image, logger log.Logger) (*Layout, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	l := &Layout{}
	var err error
	if l.HostEnd, err = hostEnd(host); err != nil {
		return nil, err
	}

	var ok bool
	if l.WindowBase, ok = utils.CheckedAlignTo(l.HostEnd, PageSize); !ok {
		return nil, overflow("host end %#x", l.HostEnd)
	}
	if l.EmbedBase, ok = utils.CheckedAlignTo(host.Size(), PageSize); !ok {
		return nil, overflow("host size %#x", host.Size())
	}

	addr := l.WindowBase
	reserve := func(name string, memsz uint64, flags elf.ProgFlag) error {
		chunk := NewGuardChunk(name, addr, memsz, flags)
		next, ok := utils.CheckedAdd(addr, memsz)
		if !ok {
			return overflow("%s at %#x with size %#x", name, addr, memsz)
		}
		l.Chunks = append(l.Chunks, chunk)
		level.Debug(logger).Log("msg", "reserved", "chunk", name, "vaddr", hex(addr), "memsz", hex(memsz))
		addr = next
		return nil
	}

	if err := reserve("guard", GuardSize, 0); err != nil {
		return nil, err
	}
	if err := reserve("rw-guard", PageSize, elf.PF_R|elf.PF_W); err != nil {
		return nil, err
	}
	l.Base = addr

	// prev is the unrounded extent of the last placed segment. Segments may
	// share a page but not bytes.
	prev := span{l.Base, l.Base}
	for i, src := range module.Phdrs() {
		if !src.IsLoad() {
			continue
		}

		chunk, err := l.place(module, i, src, prev)
		if err != nil {
			return nil, err
		}
		phdr := chunk.GetPhdr()
		end, ok := utils.CheckedAdd(phdr.VAddr, phdr.MemSize)
		if ok {
			addr, ok = utils.CheckedAlignTo(end, PageSize)
		}
		if !ok {
			return nil, overflow("%s at %#x with size %#x", chunk.Name, phdr.VAddr, phdr.MemSize)
		}
		prev = span{phdr.VAddr, end}
		l.Chunks = append(l.Chunks, chunk)
		level.Debug(logger).Log("msg", "placed", "chunk", chunk.Name, "vaddr", hex(phdr.VAddr),
			"memsz", hex(phdr.MemSize), "offset", hex(phdr.Offset), "filesz", hex(phdr.FileSize))
	}

	used := addr - l.Base
	limit := WindowSize + GuardSize
	if used > limit {
		return nil, overflow("module spans %#x bytes, window holds %#x", used, limit)
	}
	if err := reserve("trailing-guard", limit-used, 0); err != nil {
		return nil, err
	}
	l.End = addr
	return l, nil
}

type span struct {
	start, end uint64
}

// place re-bases one module segment. prev is the placed extent of the
// module's previous PT_LOAD.
func (l *Layout) place(module *Image, idx int, src Phdr, prev span) (*ContentChunk, error) {
	name := fmt.Sprintf("module[%d]", idx)

	if src.FileSize > src.MemSize {
		return nil, invalidImage(module.Name(), "%s: file size %#x exceeds memory size %#x", name, src.FileSize, src.MemSize)
	}
	if src.Align > 1 && !utils.HasSingleBit(src.Align) {
		return nil, invalidImage(module.Name(), "%s: alignment %#x is not a power of two", name, src.Align)
	}
	if _, ok := module.Bytes(src.Offset, src.FileSize); !ok {
		return nil, invalidImage(module.Name(), "%s: contents %#x+%#x are out of range", name, src.Offset, src.FileSize)
	}

	vaddr, ok := utils.CheckedAdd(l.Base, src.VAddr)
	if !ok {
		return nil, overflow("%s: vaddr %#x past base %#x", name, src.VAddr, l.Base)
	}
	if vaddr < prev.start {
		return nil, invalidImage(module.Name(), "%s: vaddr %#x precedes the previous segment", name, src.VAddr)
	}
	if vaddr < prev.end {
		return nil, invalidImage(module.Name(), "%s: vaddr %#x overlaps the previous segment", name, src.VAddr)
	}

	offset, ok := utils.CheckedAdd(l.EmbedBase, src.Offset)
	if !ok {
		return nil, overflow("%s: offset %#x past embed base %#x", name, src.Offset, l.EmbedBase)
	}
	if offset%PageSize != vaddr%PageSize {
		return nil, invalidImage(module.Name(), "%s: offset %#x and vaddr %#x are not congruent modulo page size",
			name, src.Offset, src.VAddr)
	}

	phdr := src
	phdr.Offset = offset
	phdr.VAddr = vaddr
	phdr.PAddr = vaddr
	if phdr.Align > PageSize {
		phdr.Align = PageSize
	}

	return &ContentChunk{
		Chunk: Chunk{Name: name, Phdr: phdr},
		Src:   src,
	}, nil
}

func hex(v uint64) string {
	return fmt.Sprintf("%#x", v)
}
