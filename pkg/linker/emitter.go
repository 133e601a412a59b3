package linker

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	OutputMode os.FileMode = 0o755
	SourceMode os.FileMode = 0o644
)

// Emit writes the composed image to path with executable permissions.
func Emit(fs afero.Fs, path string, buf []byte) error {
	return writeFile(fs, path, buf, OutputMode)
}

// writeFile writes buf to a temporary file next to path and renames it into
// place, so a failed write never leaves a partial output behind.
func writeFile(fs afero.Fs, path string, buf []byte, mode os.FileMode) (err error) {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return ioError(err, "create output %s", path)
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			fs.Remove(name)
		}
	}()

	if _, err = tmp.Write(buf); err != nil {
		tmp.Close()
		return ioError(err, "write %s", path)
	}
	if err = tmp.Close(); err != nil {
		return ioError(err, "close %s", path)
	}
	if err = fs.Chmod(name, mode); err != nil {
		return ioError(err, "chmod %s", path)
	}
	if err = fs.Rename(name, path); err != nil {
		return ioError(err, "rename %s", path)
	}
	return nil
}
