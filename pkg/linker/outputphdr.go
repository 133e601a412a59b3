package linker

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ksco/sboxld/pkg/utils"
)

// NullSlots returns the indices of PT_NULL entries in table order. These are
// the only entries the compositor may overwrite.
func NullSlots(phdrs []Phdr) []int {
	return lo.FilterMap(phdrs, func(p Phdr, i int) (int, bool) {
		return i, p.IsNull()
	})
}

// RewritePhdrs writes every chunk of the layout into a PT_NULL slot of the
// host's table inside ctx.Buf. All other entries are left untouched.
func RewritePhdrs(ctx *Context) error {
	phdrs := ctx.Host.Phdrs()
	chunks := ctx.Layout.Chunks

	slots := NullSlots(phdrs)
	if len(slots) < len(chunks) {
		return errors.Wrapf(ErrInsufficientSlots, "%s: %d PT_NULL program headers available, %d needed",
			ctx.Host.Name(), len(slots), len(chunks))
	}

	phoff := ctx.Host.Ehdr().PhOff
	for i, chunk := range chunks {
		idx := slots[i]
		phdrs[idx] = *chunk.GetPhdr()

		off := phoff + uint64(idx)*PhdrSize
		if err := utils.Write[Phdr](ctx.Buf[off:off+PhdrSize], phdrs[idx]); err != nil {
			return errors.Wrapf(err, "writing program header %d", idx)
		}
		level.Debug(ctx.Logger).Log("msg", "rewrote slot", "slot", idx, "chunk", chunk.GetName(), "phdr", phdrs[idx])
	}

	return checkLoadOrder(ctx.Host.Name(), phdrs)
}

// checkLoadOrder verifies PT_LOAD entries ascend by vaddr, which ELF loaders
// require.
func checkLoadOrder(name string, phdrs []Phdr) error {
	prev := uint64(0)
	for i, p := range phdrs {
		if !p.IsLoad() {
			continue
		}
		if p.VAddr < prev {
			return invalidImage(name, "PT_LOAD at index %d (vaddr %#x) follows a higher segment; reserved slots must come after the host's own PT_LOAD entries",
				i, p.VAddr)
		}
		prev = p.VAddr
	}
	return nil
}

// ReadPhdrs decodes the program-header table of a composed buffer.
func ReadPhdrs(buf []byte) ([]Phdr, error) {
	ehdr, err := utils.Read[Ehdr](buf)
	if err != nil {
		return nil, err
	}

	end, ok := utils.CheckedAdd(ehdr.PhOff, uint64(ehdr.PhNum)*PhdrSize)
	if !ok || end > uint64(len(buf)) {
		return nil, errors.Errorf("program header table %#x-%#x is out of range", ehdr.PhOff, end)
	}

	phdrs := make([]Phdr, ehdr.PhNum)
	for i := range phdrs {
		off := ehdr.PhOff + uint64(i)*PhdrSize
		if phdrs[i], err = utils.Read[Phdr](buf[off:]); err != nil {
			return nil, err
		}
	}
	return phdrs, nil
}
