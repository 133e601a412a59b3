package linker

import (
	"debug/elf"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksco/sboxld/pkg/linker/testelf"
)

func TestNullSlots(t *testing.T) {
	phdrs := []Phdr{
		{Type: uint32(elf.PT_LOAD)},
		{},
		{Type: uint32(elf.PT_DYNAMIC)},
		{},
		{},
	}
	assert.Equal(t, []int{1, 3, 4}, NullSlots(phdrs))
	assert.Empty(t, NullSlots(phdrs[:1]))
}

func prepare(t *testing.T, ctx *Context) {
	t.Helper()
	require.NoError(t, ComputeLayout(ctx))
	require.NoError(t, CreateOutputBuffer(ctx))
}

func TestRewritePhdrs(t *testing.T) {
	ctx := newTestContext(t, hostImage(7), moduleImage())
	prepare(t, ctx)
	require.NoError(t, RewritePhdrs(ctx))

	got, err := ReadPhdrs(ctx.Buf)
	require.NoError(t, err)

	want := ctx.Host.Phdrs()
	for i, chunk := range ctx.Layout.Chunks {
		want[4+i] = *chunk.GetPhdr()
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("program headers mismatch (-want +got):\n%s", diff)
	}

	// Five chunks, seven slots: the last two stay PT_NULL.
	assert.Equal(t, Phdr{}, got[9])
	assert.Equal(t, Phdr{}, got[10])
}

func TestRewritePhdrsScatteredSlots(t *testing.T) {
	host := testelf.Dso(
		testelf.Load(0, 0, 0x1000, 0x1000, rx),
		testelf.Null(),
		testelf.Load(0x1000, 0x1000, 0x100, 0x100, rw),
		elf.ProgHeader{Type: elf.PT_GNU_STACK, Flags: rw},
		testelf.Null(),
		elf.ProgHeader{Type: elf.PT_NOTE, Flags: elf.PF_R, Off: 0x200, Vaddr: 0x200, Filesz: 0x20, Memsz: 0x20, Align: 4},
		testelf.Null(),
		testelf.Null(),
	)
	module := testelf.Dso(testelf.Load(0, 0, 0x100, 0x100, rx))
	ctx := newTestContext(t, host, module)
	prepare(t, ctx)

	// The first slot sits before the host's second PT_LOAD, so the table
	// would no longer be sorted.
	err := RewritePhdrs(ctx)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.ErrorContains(t, err, "PT_LOAD at index 2")
}

func TestRewritePhdrsSkipsNonNullEntries(t *testing.T) {
	host := testelf.Dso(
		testelf.Load(0, 0, 0x1000, 0x1000, rx),
		testelf.Null(),
		elf.ProgHeader{Type: elf.PT_GNU_STACK, Flags: rw},
		testelf.Null(),
		elf.ProgHeader{Type: elf.PT_NOTE, Flags: elf.PF_R, Off: 0x200, Vaddr: 0x200, Filesz: 0x20, Memsz: 0x20, Align: 4},
		testelf.Null(),
		testelf.Null(),
	)
	module := testelf.Dso(testelf.Load(0, 0, 0x100, 0x100, rx))
	ctx := newTestContext(t, host, module)
	prepare(t, ctx)
	require.NoError(t, RewritePhdrs(ctx))

	got, err := ReadPhdrs(ctx.Buf)
	require.NoError(t, err)

	hostPhdrs := ctx.Host.Phdrs()
	for _, i := range []int{0, 2, 4} {
		assert.Equal(t, hostPhdrs[i], got[i], "entry %d", i)
	}
	assert.Equal(t, []string{"guard", "rw-guard", "module[0]", "trailing-guard"}, []string{
		ctx.Layout.Chunks[0].GetName(), ctx.Layout.Chunks[1].GetName(),
		ctx.Layout.Chunks[2].GetName(), ctx.Layout.Chunks[3].GetName(),
	})
	for n, i := range []int{1, 3, 5, 6} {
		assert.Equal(t, *ctx.Layout.Chunks[n].GetPhdr(), got[i], "slot %d", i)
	}
}

func TestRewritePhdrsInsufficientSlots(t *testing.T) {
	// Two module segments need 2 + 2 + 1 slots.
	ctx := newTestContext(t, hostImage(4), moduleImage())
	prepare(t, ctx)
	before := append([]byte(nil), ctx.Buf...)

	err := RewritePhdrs(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientSlots)
	assert.ErrorContains(t, err, "4 PT_NULL program headers available, 5 needed")
	assert.Equal(t, before, ctx.Buf)
}

func TestReadPhdrsOutOfRange(t *testing.T) {
	buf := hostImage(2).Bytes()
	_, err := ReadPhdrs(buf[:0x80])
	assert.Error(t, err)
}
