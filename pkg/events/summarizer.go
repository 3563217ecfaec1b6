package events

import (
	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// counterKey identifies one (flag, variation, version) bucket the
// summarizer folds feature events into. A nil Version or Variation (an
// evaluation that errored before resolving either) is folded separately
// from every concrete variation.
type counterKey struct {
	FlagKey   string
	Variation int
	HasVar    bool
	Version   int
	HasVer    bool
}

type counter struct {
	Default ldmodel.Value
	Value   ldmodel.Value
	Count   int
}

// summarizer folds a stream of FeatureEvents into per-flag counters plus
// the start/end timestamps spanning the folded window, without retaining
// the individual events. Reset by Flush.
type summarizer struct {
	counters  map[counterKey]*counter
	startDate int64
	endDate   int64
	empty     bool
}

func newSummarizer() *summarizer {
	return &summarizer{counters: map[counterKey]*counter{}, empty: true}
}

func (s *summarizer) AddFeatureEvent(e ldevents.FeatureEvent) {
	key := counterKey{FlagKey: e.Key}
	if e.Variation != nil {
		key.Variation, key.HasVar = *e.Variation, true
	}
	if e.Version != nil {
		key.Version, key.HasVer = *e.Version, true
	}

	c, ok := s.counters[key]
	if !ok {
		c = &counter{Default: e.Default, Value: e.Value}
		s.counters[key] = c
	}
	c.Count++

	if s.empty || e.CreationDateMs < s.startDate {
		s.startDate = e.CreationDateMs
	}
	if s.empty || e.CreationDateMs > s.endDate {
		s.endDate = e.CreationDateMs
	}
	s.empty = false
}

func (s *summarizer) Empty() bool { return s.empty }

// SnapshotAndReset returns the folded state and replaces it with a fresh,
// empty summarizer; used by Flush so producers never observe a half-reset
// summarizer.
func (s *summarizer) SnapshotAndReset() *summarizer {
	snap := &summarizer{counters: s.counters, startDate: s.startDate, endDate: s.endDate, empty: s.empty}
	*s = *newSummarizer()
	return snap
}
