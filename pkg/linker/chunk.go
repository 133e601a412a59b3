package linker

import (
	"debug/elf"

	"github.com/pkg/errors"
)

const (
	ChunkKindGuard = iota
	ChunkKindContent
)

// Chunker is one program-header entry inserted into the host's table.
type Chunker interface {
	Kind() int
	GetName() string
	GetPhdr() *Phdr
	CopyBuf(ctx *Context) error
}

type Chunk struct {
	Name string
	Phdr Phdr
}

func (c *Chunk) GetName() string {
	return c.Name
}

func (c *Chunk) GetPhdr() *Phdr {
	return &c.Phdr
}

// GuardChunk reserves address space without backing file bytes.
type GuardChunk struct {
	Chunk
}

func NewGuardChunk(name string, vaddr, memsz uint64, flags elf.ProgFlag) *GuardChunk {
	return &GuardChunk{
		Chunk: Chunk{
			Name: name,
			Phdr: Phdr{
				Type:    uint32(elf.PT_LOAD),
				Flags:   uint32(flags),
				VAddr:   vaddr,
				PAddr:   vaddr,
				MemSize: memsz,
				Align:   PageSize,
			},
		},
	}
}

func (g *GuardChunk) Kind() int {
	return ChunkKindGuard
}

func (g *GuardChunk) CopyBuf(ctx *Context) error {
	return nil
}

// ContentChunk is a module PT_LOAD segment re-based into the window.
type ContentChunk struct {
	Chunk

	// Src is the segment as it appears in the module.
	Src Phdr
}

func (c *ContentChunk) Kind() int {
	return ChunkKindContent
}

// CopyBuf copies the segment's file bytes verbatim from the module to the
// chunk's output offset.
func (c *ContentChunk) CopyBuf(ctx *Context) error {
	if c.Src.FileSize == 0 {
		return nil
	}

	src, ok := ctx.Module.Bytes(c.Src.Offset, c.Src.FileSize)
	if !ok {
		return invalidImage(ctx.Module.Name(), "segment %s is out of range", c.Name)
	}

	end := c.Phdr.Offset + c.Phdr.FileSize
	if end > uint64(cap(ctx.Buf)) {
		return errors.Errorf("segment %s ends at %#x past output capacity %#x", c.Name, end, cap(ctx.Buf))
	}
	if end > uint64(len(ctx.Buf)) {
		ctx.Buf = ctx.Buf[:end]
	}
	copy(ctx.Buf[c.Phdr.Offset:end], src)
	return nil
}
