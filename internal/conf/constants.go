// Package conf holds the tuning constants and derived geometry for the
// extendible-hash store. Values here are authoritative per the store's
// on-disk format; changing them changes the format.
package conf

// PageSize is the on-disk bucket size, chosen to match an SSD sector.
const PageSize int64 = 512

// CounterBytes is the width of a bucket's trailing element counter.
// A 16-bit counter caps a bucket's capacity B at 65535 elements.
const CounterBytes int64 = 2

// ResizeLoadThreshold triggers a resize once e_count crosses this fraction
// of bucket_space, provided one of the overflow thresholds also holds.
const ResizeLoadThreshold = 0.85

// InitialTargetLoad sizes the original mask width M0 so that the expected
// fill factor at setup is this fraction of available slots.
const InitialTargetLoad = 0.75

// OverflowAbsoluteThreshold is an overflow count that, combined with
// ResizeLoadThreshold, triggers a resize regardless of overflow ratio.
const OverflowAbsoluteThreshold = 100_000

// OverflowRatioThreshold is the overflow-to-e_count ratio that, combined
// with ResizeLoadThreshold, triggers a resize.
const OverflowRatioThreshold = 0.10

// OverflowEmergencyThreshold triggers a resize on its own, independent of
// load, once overflow grows this large.
const OverflowEmergencyThreshold = 1_000_000

// ResizeBurst is the number of resize_step calls run after each Add while
// a resize is in progress.
const ResizeBurst = 4

// DirMode is the permission mode for a newly created store directory.
const DirMode = 0700

// MetaFileName, DataFilePrefix, OverflowFileName, OverflowTmpName are the
// fixed names making up the on-disk directory layout (spec §6).
const (
	MetaFileName     = "meta.bin"
	DataFilePrefix   = "data."
	OverflowFileName = "overflow.bin"
	OverflowTmpName  = "overflow.tmp"
)
