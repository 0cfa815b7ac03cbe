package bsp

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// File is a ByteStore backed by a regular file, used by ground tooling to
// inspect and prepare store images. On linux and darwin the file is mapped
// shared and read-write; elsewhere it is loaded into memory and written
// through on every Write.
type File struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	data    []byte
	created bool
}

// OpenFile opens an existing image. Its size is the store capacity and the
// validity flag is reported true.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return mapImage(path, f, false)
}

// CreateFile opens the image at path sized to exactly size bytes, creating or
// resizing it as needed. The validity flag is true only when the file already
// existed with that size.
func CreateFile(path string, size uint32) (*File, error) {
	if size == 0 {
		return nil, fmt.Errorf("bsp: cannot create %s with zero capacity", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	fresh := st.Size() != int64(size)
	if fresh {
		// Truncate to zero first so a resized image never keeps old content.
		if err = f.Truncate(0); err == nil {
			err = f.Truncate(int64(size))
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("bsp: size image: %w", err)
		}
	}
	return mapImage(path, f, fresh)
}

func mapImage(path string, f *os.File, fresh bool) (*File, error) {
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("bsp: empty image file: %s", path)
	}
	if sz > int64(^uint32(0)) {
		_ = f.Close()
		return nil, fmt.Errorf("bsp: image %s too large (%d bytes)", path, sz)
	}

	data, err := mapFile(f, int(sz))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &File{path: path, f: f, data: data, created: fresh}, nil
}

// Path returns the image path.
func (s *File) Path() string { return s.path }

func (s *File) Read(off, n uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, &IOError{Op: "read", Off: off, Len: n, Err: ErrClosed}
	}
	if err := checkRange("read", off, n, uint32(len(s.data))); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.data[off:off+n])
	return out, nil
}

func (s *File) Write(off uint32, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := uint32(len(p))
	if s.data == nil {
		return &IOError{Op: "write", Off: off, Len: n, Err: ErrClosed}
	}
	if err := checkRange("write", off, n, uint32(len(s.data))); err != nil {
		return err
	}
	if err := writeThrough(s.f, s.data, off, p); err != nil {
		return &IOError{Op: "write", Off: off, Len: n, Err: err}
	}
	return nil
}

func (s *File) Capacity() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.data))
}

// ValidityFlag is false when CreateFile had to create or resize the image.
func (s *File) ValidityFlag() bool {
	return !s.created
}

// Sync flushes the image to stable storage.
func (s *File) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return ErrClosed
	}
	return syncFile(s.f, s.data)
}

// Close flushes and releases the image.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	var errs []error
	if s.data != nil {
		errs = append(errs, syncFile(s.f, s.data), unmapFile(s.data))
		s.data = nil
	}
	errs = append(errs, s.f.Close())
	s.f = nil
	return errors.Join(errs...)
}
