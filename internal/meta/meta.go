// Package meta reads and writes the store's meta.bin record: the small
// fixed header recording enough of the extendible-hash state machine to
// reconstruct it on re-open.
package meta

import "encoding/binary"

// Size is the packed, padding-free length of a meta.bin record.
const Size = 27

// Record mirrors spec §6's meta.bin fields.
type Record struct {
	OriginalMaskSize  uint8
	BucketArraysCount uint8
	IsResizing        bool
	ResizeCounter     uint64
	ECount            uint64
	OverflowCount     uint64
}

// Encode writes r into dst, which must be exactly Size bytes.
func Encode(r Record, dst []byte) {
	dst[0] = r.OriginalMaskSize
	dst[1] = r.BucketArraysCount
	if r.IsResizing {
		dst[2] = 1
	} else {
		dst[2] = 0
	}
	binary.LittleEndian.PutUint64(dst[3:11], r.ResizeCounter)
	binary.LittleEndian.PutUint64(dst[11:19], r.ECount)
	binary.LittleEndian.PutUint64(dst[19:27], r.OverflowCount)
}

// Decode reads a Record from src, which must be exactly Size bytes.
func Decode(src []byte) Record {
	return Record{
		OriginalMaskSize:  src[0],
		BucketArraysCount: src[1],
		IsResizing:        src[2] != 0,
		ResizeCounter:     binary.LittleEndian.Uint64(src[3:11]),
		ECount:            binary.LittleEndian.Uint64(src[11:19]),
		OverflowCount:     binary.LittleEndian.Uint64(src[19:27]),
	}
}
