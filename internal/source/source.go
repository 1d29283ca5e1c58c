// Package source loads module source buffers. On unix the buffer is a
// read-only mmap of the file; elsewhere it falls back to reading the
// whole file. Either way the buffer stays valid until Close, which the
// scanner and parser require of anything holding token offsets.
package source

import "os"

// Buffer is a loaded source file.
type Buffer struct {
	Path  string
	Data  []byte
	close func() error
}

// Close releases the buffer. Tokens and AST nodes referencing it become
// invalid.
func (b *Buffer) Close() error {
	if b.close == nil {
		return nil
	}
	err := b.close()
	b.close = nil
	b.Data = nil
	return err
}

// Load opens the file at path as a source buffer, preferring the
// platform's mapping fast path.
func Load(path string) (*Buffer, error) {
	return load(path)
}

// readFallback loads the file through a plain read. Used directly on
// platforms without a mapping path and as the empty-file path on unix.
func readFallback(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Buffer{Path: path, Data: data}, nil
}
