package ehmap

// Stats is a read-only snapshot of a Map's internal state: aggregate
// counts only, never element order or content.
type Stats struct {
	// ECount is the total number of stored elements, across buckets and
	// the overflow index.
	ECount int64
	// OverflowCount is the number of elements currently held in the
	// in-memory overflow index.
	OverflowCount int64
	// BucketSpace is the sum of B*N_i over every active bucket array.
	// While a doubling is in progress the newest array counts only its
	// already-split buckets, so this can be less than the on-disk slots.
	BucketSpace int64
	// LoadFactor is ECount / BucketSpace, or 0 if BucketSpace is 0.
	LoadFactor float64
	// MaskWidth is the current address-space mask width M.
	MaskWidth int64
	// ArrayCount is the number of bucket arrays in the directory.
	ArrayCount int
	// IsResizing reports whether a doubling is currently in progress.
	IsResizing bool
	// Capacity is B, the per-bucket element capacity.
	Capacity int64
}

// Stat reports aggregate counts and resize state. It does not mutate the
// store and does not expose element order, so it isn't a form of the
// ordered iteration this package otherwise excludes.
func (m *Map[K, V]) Stat() Stats {
	var loadFactor float64
	bucketSpace := m.s.BucketSpace()
	if bucketSpace > 0 {
		loadFactor = float64(m.s.ECount()) / float64(bucketSpace)
	}
	return Stats{
		ECount:        m.s.ECount(),
		OverflowCount: m.s.OverflowCount(),
		BucketSpace:   bucketSpace,
		LoadFactor:    loadFactor,
		MaskWidth:     m.s.MaskWidth(),
		ArrayCount:    m.s.ArrayCount(),
		IsResizing:    m.s.IsResizing(),
		Capacity:      m.s.Capacity(),
	}
}
