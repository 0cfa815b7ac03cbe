//go:build !linux && !darwin

package bsp

import (
	"fmt"
	"io"
	"os"
)

func mapFile(f *os.File, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("bsp: load image: %w", err)
	}
	return buf, nil
}

func unmapFile([]byte) error {
	return nil
}

// writeThrough updates the in-memory copy only once the file holds p.
func writeThrough(f *os.File, data []byte, off uint32, p []byte) error {
	if _, err := f.WriteAt(p, int64(off)); err != nil {
		return err
	}
	copy(data[off:], p)
	return nil
}

func syncFile(f *os.File, _ []byte) error {
	return f.Sync()
}
