//go:build unix

package source

import (
	"os"

	"golang.org/x/sys/unix"
)

// load maps the file read-only. mmap of a zero-length file is an error
// on some kernels, so empty files take the read path.
func load(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return readFallback(path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return readFallback(path)
	}

	return &Buffer{
		Path: path,
		Data: data,
		close: func() error {
			return unix.Munmap(data)
		},
	}, nil
}
