package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ksco/sboxld/pkg/linker/testelf"
)

const (
	rx = elf.PF_R | elf.PF_X
	rw = elf.PF_R | elf.PF_W
)

// hostImage has two PT_LOAD segments ending at 0x3000 followed by spare
// PT_NULL slots.
func hostImage(nulls int) testelf.Image {
	progs := []elf.ProgHeader{
		testelf.Load(0, 0, 0x1000, 0x1000, rx),
		testelf.Load(0x1000, 0x2000, 0x800, 0x1000, rw),
		{Type: elf.PT_DYNAMIC, Flags: rw, Off: 0x1100, Vaddr: 0x2100, Paddr: 0x2100, Filesz: 0x100, Memsz: 0x100, Align: 8},
		{Type: elf.PT_GNU_STACK, Flags: rw},
	}
	return testelf.Dso(append(progs, testelf.Nulls(nulls)...)...)
}

// moduleImage has a text and a data segment, linked at 0.
func moduleImage() testelf.Image {
	return testelf.Dso(
		testelf.Load(0, 0, 0x1234, 0x1234, rx),
		testelf.Load(0x1e10, 0x2e10, 0x200, 0x800, rw),
		elf.ProgHeader{Type: elf.PT_GNU_STACK, Flags: rw},
	)
}

func newImage(t *testing.T, name string, img testelf.Image) *Image {
	t.Helper()
	image, err := NewImage(NewFile(name, img.Bytes()))
	require.NoError(t, err)
	return image
}

func newTestContext(t *testing.T, host, module testelf.Image) *Context {
	t.Helper()
	ctx := NewContext()
	ctx.Host = newImage(t, "host.so", host)
	ctx.Module = newImage(t, "module.so", module)
	return ctx
}
