package linker

import (
	"github.com/pkg/errors"

	"github.com/ksco/sboxld/pkg/utils"
)

// CreateOutputBuffer allocates the composed image and copies the host into
// it. The buffer's capacity bounds every module placement; its length grows
// to the true output size as content is copied.
func CreateOutputBuffer(ctx *Context) error {
	hostSize := ctx.Host.Size()

	capacity, ok := utils.CheckedAdd(hostSize, ctx.Module.Size())
	if ok {
		capacity, ok = utils.CheckedAdd(capacity, PageSize)
	}
	if !ok || capacity > uint64(maxInt) {
		return errors.Wrapf(ErrAllocationOverflow, "output of %#x+%#x bytes", hostSize, ctx.Module.Size())
	}

	ctx.Buf = make([]byte, hostSize, capacity)
	copy(ctx.Buf, ctx.Host.Contents())
	return nil
}

// CopyContents places the module's segment bytes. Guard chunks have no file
// bytes and contribute nothing.
func CopyContents(ctx *Context) error {
	for _, chunk := range ctx.Layout.Chunks {
		if err := chunk.CopyBuf(ctx); err != nil {
			return err
		}
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)
