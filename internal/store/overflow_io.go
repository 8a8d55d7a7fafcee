package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sturla/ehmap/internal/conf"
	"github.com/sturla/ehmap/internal/overflow"
)

// recordSize returns the packed, padding-free length of one overflow.bin
// record: (coord uint64, hash uint64, key, value), resolving the §9 open
// question by using the same formula to size and to read the file.
func (s *Store[K, V]) recordSize() int64 {
	return 8 + 8 + int64(s.keyCodec.Size()) + int64(s.valueCodec.Size())
}

// flushOverflow serialises the overflow index to overflow.bin via a
// write-to-temp-then-rename for atomic replacement, per spec §4.4.6.
func (s *Store[K, V]) flushOverflow() error {
	finalPath := filepath.Join(s.dir, conf.OverflowFileName)

	if s.overflowIndex.Len() == 0 {
		if err := os.Remove(finalPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: remove %s: %w", finalPath, err)
		}
		return nil
	}

	tmpPath := filepath.Join(s.dir, conf.OverflowTmpName)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", tmpPath, err)
	}

	recSize := s.recordSize()
	keySize := int64(s.keyCodec.Size())
	buf := make([]byte, recSize)

	it := s.overflowIndex.Records()
	for it.HasNext() {
		rec := it.Next()
		binary.LittleEndian.PutUint64(buf[0:8], rec.Coord)
		binary.LittleEndian.PutUint64(buf[8:16], rec.Hash)
		s.keyCodec.Encode(rec.Elem.Key, buf[16:16+keySize])
		s.valueCodec.Encode(rec.Elem.Value, buf[16+keySize:recSize])
		if _, werr := f.Write(buf); werr != nil {
			_ = f.Close()
			return fmt.Errorf("store: write %s: %w", tmpPath, werr)
		}
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("store: rename %s to %s: %w", tmpPath, finalPath, err)
	}
	return nil
}

// loadOverflow rehydrates the overflow index from overflow.bin on open.
// wantCount is the record count recorded in meta.bin; a missing file when
// wantCount > 0, or a size mismatch, is a corrupt store.
func (s *Store[K, V]) loadOverflow(wantCount int64) error {
	path := filepath.Join(s.dir, conf.OverflowFileName)

	if wantCount == 0 {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("store: %s unexpectedly present with zero overflow count", path)
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("store: missing %s: %w", path, err)
	}
	defer f.Close()

	recSize := s.recordSize()
	keySize := int64(s.keyCodec.Size())

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", path, err)
	}
	if st.Size() != wantCount*recSize {
		return fmt.Errorf("store: %s has size %d, expected %d records of %d bytes", path, st.Size(), wantCount, recSize)
	}

	buf := make([]byte, recSize)
	for i := int64(0); i < wantCount; i++ {
		if _, err = io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("store: read %s: %w", path, err)
		}
		coord := binary.LittleEndian.Uint64(buf[0:8])
		hash := binary.LittleEndian.Uint64(buf[8:16])
		key := s.keyCodec.Decode(buf[16 : 16+keySize])
		value := s.valueCodec.Decode(buf[16+keySize : recSize])
		s.overflowIndex.Insert(coord, hash, overflow.Element[K, V]{Key: key, Value: value})
	}
	return nil
}
