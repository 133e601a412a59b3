package linker

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const DefaultSymbolPrefix = "lib"

// SymbolSuffixes name the window markers a host refers to: the module base,
// the end of the window and the module entry point.
var SymbolSuffixes = []string{"base", "end", "entry"}

func SymbolNames(prefix string) []string {
	names := make([]string, len(SymbolSuffixes))
	for i, suffix := range SymbolSuffixes {
		names[i] = prefix + "_" + suffix
	}
	return names
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// WriteSymbolStubs writes C declarations for the window markers.
func WriteSymbolStubs(w io.Writer, prefix string) error {
	if !validIdentifier(prefix) {
		return errors.Errorf("symbol prefix %q is not a C identifier", prefix)
	}
	for _, name := range SymbolNames(prefix) {
		if _, err := fmt.Fprintf(w, "extern char %s;\n", name); err != nil {
			return err
		}
	}
	return nil
}

// GenerateSymbolStubs writes the declarations for prefix to path.
func GenerateSymbolStubs(fs afero.Fs, path, prefix string) error {
	var buf bytes.Buffer
	if err := WriteSymbolStubs(&buf, prefix); err != nil {
		return err
	}
	return writeFile(fs, path, buf.Bytes(), SourceMode)
}
