//go:build linux || darwin

package bsp

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("bsp: mmap failed: %w", err)
	}
	return data, nil
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}

// The mapping is shared, so the page cache already holds the write.
func writeThrough(_ *os.File, data []byte, off uint32, p []byte) error {
	copy(data[off:], p)
	return nil
}

func syncFile(f *os.File, data []byte) error {
	if err := unix.Msync(data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("bsp: msync: %w", err)
	}
	return datasync(f)
}
