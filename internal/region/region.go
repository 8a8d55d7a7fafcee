// Package region implements the mapped-region contract of the store: a
// contiguous, fixed-length, file-backed byte region with random-access
// read/write and an explicit flush.
package region

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a memory-mapped, fixed-length view over a backing file.
type Region struct {
	file   *os.File
	data   []byte
	length int64
	path   string
}

// Open creates (or re-opens) the file at path and maps exactly length
// bytes of it read-write. On re-open with the same length the existing
// bytes are preserved; on first creation the file is extended with
// zero bytes via Truncate before mapping.
func Open(path string, length int64) (*Region, error) {
	if length <= 0 {
		return nil, fmt.Errorf("region: invalid length %d", length)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("region: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("region: stat %s: %w", path, err)
	}
	if fi.Size() != length {
		if err = f.Truncate(length); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("region: truncate %s to %d: %w", path, length, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("region: mmap %s: %w", path, err)
	}

	// Buckets are addressed by hash, not scanned sequentially.
	if err = unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, fmt.Errorf("region: madvise %s: %w", path, err)
	}

	return &Region{file: f, data: data, length: length, path: path}, nil
}

// Bytes returns the mapped byte slice backing the region.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the region's byte length.
func (r *Region) Len() int64 {
	return r.length
}

// Flush asks the OS to write back the mapped pages. sync waits for
// completion; async-mode returns immediately.
func (r *Region) Flush(sync bool) error {
	flag := unix.MS_ASYNC
	if sync {
		flag = unix.MS_SYNC
	}
	if err := unix.Msync(r.data, flag); err != nil {
		return fmt.Errorf("region: msync %s: %w", r.path, err)
	}
	return nil
}

// Advise applies an madvise hint over the whole region, e.g. for
// prefetching a range that is about to be walked sequentially during a
// resize.
func (r *Region) Advise(advice int) error {
	return unix.Madvise(r.data, advice)
}

// AdviseRange applies an madvise hint over a byte sub-range of the region.
func (r *Region) AdviseRange(offset, length int64, advice int) error {
	if offset < 0 || length < 0 || offset+length > r.length {
		return fmt.Errorf("region: advise range out of bounds")
	}
	return unix.Madvise(r.data[offset:offset+length], advice)
}

// Close unmaps the region, optionally flushing first, and closes the
// backing file descriptor.
func (r *Region) Close(flush bool) error {
	var err error
	if flush {
		err = r.Flush(true)
	}
	if uerr := unix.Munmap(r.data); uerr != nil && err == nil {
		err = fmt.Errorf("region: munmap %s: %w", r.path, uerr)
	}
	r.data = nil
	if cerr := r.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("region: close %s: %w", r.path, cerr)
	}
	return err
}

// Destroy unmaps the region and removes its backing file. Use only when
// the store is being discarded entirely.
func (r *Region) Destroy() error {
	if r.data != nil {
		_ = unix.Munmap(r.data)
		r.data = nil
	}
	_ = r.file.Close()
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("region: remove %s: %w", r.path, err)
	}
	return nil
}
