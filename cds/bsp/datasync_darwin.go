package bsp

import "os"

// os.File.Sync issues F_FULLFSYNC on darwin.
func datasync(f *os.File) error {
	return f.Sync()
}
