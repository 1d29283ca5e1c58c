//go:build !unix

package source

func load(path string) (*Buffer, error) {
	return readFallback(path)
}
