package ehmap

import "github.com/sturla/ehmap/internal/conf"

// Option overrides a tuning constant at Open/Create time, following the
// functional-options idiom.
type Option func(*settings)

type settings struct {
	pageSize   int64
	targetLoad float64
}

func defaultSettings() settings {
	return settings{
		pageSize:   conf.PageSize,
		targetLoad: conf.InitialTargetLoad,
	}
}

// WithPageSize overrides the on-disk bucket size. Mainly useful in tests
// that want a small page so a handful of keys already forces an overflow
// or a resize.
func WithPageSize(bytes int64) Option {
	return func(s *settings) { s.pageSize = bytes }
}

// WithTargetLoad overrides the fill factor Open uses when deriving the
// original mask width from the caller's unique-key estimate.
func WithTargetLoad(load float64) Option {
	return func(s *settings) { s.targetLoad = load }
}
