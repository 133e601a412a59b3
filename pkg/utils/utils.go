package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/fatih/color"
)

var fatalOutput io.Writer = os.Stderr

var fatalPrefix = color.New(color.Bold, color.FgRed).SprintFunc()

func Fatal(v any) {
	fmt.Fprintln(fatalOutput, "sboxld: "+fatalPrefix("fatal:"), fmt.Sprintf("%s", v))
	os.Exit(1)
}

func HasSingleBit(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// CheckedAlignTo rounds val up to a multiple of align, a power of two. It
// reports false if the result wraps around.
func CheckedAlignTo(val, align uint64) (uint64, bool) {
	if align == 0 {
		return val, true
	}
	sum, ok := CheckedAdd(val, align-1)
	if !ok {
		return 0, false
	}
	return sum & ^(align - 1), true
}

func CheckedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

func Read[T any](data []byte) (val T, err error) {
	reader := bytes.NewReader(data)
	err = binary.Read(reader, binary.LittleEndian, &val)
	return
}

func Write[T any](data []byte, e T) error {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, e); err != nil {
		return err
	}
	if len(data) < buf.Len() {
		return io.ErrShortBuffer
	}
	copy(data, buf.Bytes())
	return nil
}
