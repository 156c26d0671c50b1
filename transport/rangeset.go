package transport

import "sort"

// numberRange is an inclusive range of packet or byte numbers [start, end].
type numberRange struct {
	start uint64
	end   uint64
}

func (r numberRange) len() uint64 {
	return r.end - r.start + 1
}

// rangeSet is an ordered set of non-overlapping, non-adjacent numberRanges,
// kept sorted high-to-low (newest first) as used for received packet
// number history and ACK range generation.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#name-ack-ranges
type rangeSet struct {
	ranges []numberRange
}

// push inserts n into the set, merging with adjacent/overlapping ranges.
// It returns true if n caused a gap to be filled (a "was-missing"
// transition), i.e. n was not simply extending the newest range by one.
func (s *rangeSet) push(n uint64) (wasMissing bool) {
	i := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].start <= n
	})
	// i is the first range whose start <= n (ranges are sorted descending).
	if i < len(s.ranges) {
		r := &s.ranges[i]
		if n >= r.start && n <= r.end {
			return false // duplicate
		}
		if n == r.end+1 {
			r.end = n
			s.mergeForward(i)
			return i != 0 // extended an existing range other than the newest is a gap fill
		}
	}
	if i > 0 {
		prev := &s.ranges[i-1]
		if n == prev.start-1 {
			prev.start = n
			return true // filled into a lower range: always a gap fill
		}
	}
	// New standalone range.
	s.ranges = append(s.ranges, numberRange{})
	copy(s.ranges[i+1:], s.ranges[i:])
	s.ranges[i] = numberRange{start: n, end: n}
	return i != 0 && len(s.ranges) > 1
}

// mergeForward merges ranges[i] with ranges[i-1] if they became adjacent.
func (s *rangeSet) mergeForward(i int) {
	if i > 0 && s.ranges[i-1].start == s.ranges[i].end+1 {
		s.ranges[i].end = s.ranges[i-1].end
		s.ranges = append(s.ranges[:i-1], s.ranges[i:]...)
	}
}

// contains reports whether n is present in the set.
func (s *rangeSet) contains(n uint64) bool {
	for _, r := range s.ranges {
		if n >= r.start && n <= r.end {
			return true
		}
		if n > r.end {
			return false
		}
	}
	return false
}

// largest returns the highest number in the set.
func (s *rangeSet) largest() uint64 {
	if len(s.ranges) == 0 {
		return 0
	}
	return s.ranges[0].end
}

// removeUntil drops all ranges (and partial ranges) at or below n: used
// when an ACK for our own ACK frame confirms the peer has seen up to n.
func (s *rangeSet) removeUntil(n uint64) {
	// Ranges are sorted high-to-low, so the lowest ones sit at the tail.
	for len(s.ranges) > 0 {
		r := &s.ranges[len(s.ranges)-1]
		if r.end <= n {
			s.ranges = s.ranges[:len(s.ranges)-1]
			continue
		}
		if r.start <= n {
			r.start = n + 1
		}
		break
	}
}

func (s *rangeSet) empty() bool {
	return len(s.ranges) == 0
}

func (s *rangeSet) reset() {
	s.ranges = s.ranges[:0]
}

// clone returns a deep copy, used by the saved-ACK optimization.
func (s *rangeSet) clone() rangeSet {
	out := rangeSet{ranges: make([]numberRange, len(s.ranges))}
	copy(out.ranges, s.ranges)
	return out
}
