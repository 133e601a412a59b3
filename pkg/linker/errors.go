package linker

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds reported by the compositor. Call sites wrap one of these, so
// callers classify failures with errors.Is.
var (
	ErrIO                 = errors.New("i/o error")
	ErrInvalidImage       = errors.New("invalid image")
	ErrInsufficientSlots  = errors.New("insufficient PT_NULL slots")
	ErrAllocationOverflow = errors.New("address allocation overflow")
)

func ioError(err error, format string, args ...any) error {
	return errors.Wrapf(ErrIO, "%s: %v", fmt.Sprintf(format, args...), err)
}

func invalidImage(name string, format string, args ...any) error {
	return errors.Wrapf(ErrInvalidImage, "%s: %s", name, fmt.Sprintf(format, args...))
}
