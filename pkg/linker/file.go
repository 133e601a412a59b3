package linker

import (
	"os"

	"golang.org/x/sys/unix"
)

// File is an input file mapped read-only for the lifetime of a run.
type File struct {
	Name     string
	Contents []byte

	mapped bool
}

// OpenFile maps the named file with a private read-only mapping. Close
// releases the mapping.
func OpenFile(filename string) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, ioError(err, "open %s", filename)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, ioError(err, "fstat %s", filename)
	}
	if !stat.Mode().IsRegular() {
		return nil, ioError(unix.EINVAL, "map %s: not a regular file", filename)
	}

	file := &File{Name: filename}
	if stat.Size() == 0 {
		return file, nil
	}

	file.Contents, err = unix.Mmap(int(f.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, ioError(err, "mmap %s", filename)
	}
	file.mapped = true
	return file, nil
}

// NewFile wraps contents that are already in memory.
func NewFile(name string, contents []byte) *File {
	return &File{Name: name, Contents: contents}
}

func (f *File) Close() error {
	if !f.mapped {
		return nil
	}
	f.mapped = false
	contents := f.Contents
	f.Contents = nil
	if err := unix.Munmap(contents); err != nil {
		return ioError(err, "munmap %s", f.Name)
	}
	return nil
}
