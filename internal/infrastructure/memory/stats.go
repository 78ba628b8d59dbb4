package memory

import "sync/atomic"

// Stats counts cache outcomes with atomic counters.
type Stats struct {
	hits        atomic.Int64
	misses      atomic.Int64
	expirations atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Hits        int64
	Misses      int64
	Expirations int64
}

// HitRate returns hits/(hits+misses), or 0 before any read.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Expirations: s.expirations.Load(),
	}
}
