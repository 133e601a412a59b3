package linker

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// WriteLayout prints the segments inserted into the host's table.
func WriteLayout(w io.Writer, ctx *Context) {
	l := ctx.Layout
	fmt.Fprintf(w, "host end %#x, window %#x-%#x, module base %#x, embedded at file offset %#x\n",
		l.HostEnd, l.WindowBase, l.End, l.Base, l.EmbedBase)

	slots := NullSlots(ctx.Host.Phdrs())
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Slot", "Chunk", "VAddr", "MemSize", "Offset", "FileSize", "Flags", "Align"})
	for i, chunk := range l.Chunks {
		slot := "-"
		if i < len(slots) {
			slot = strconv.Itoa(slots[i])
		}
		phdr := chunk.GetPhdr()
		table.Append([]string{
			slot,
			chunk.GetName(),
			hex(phdr.VAddr),
			humanize.IBytes(phdr.MemSize),
			hex(phdr.Offset),
			humanize.IBytes(phdr.FileSize),
			phdrFlagsString(phdr.Flags),
			hex(phdr.Align),
		})
	}
	table.Render()

	fmt.Fprintf(w, "output size %s\n", humanize.IBytes(uint64(len(ctx.Buf))))
}
