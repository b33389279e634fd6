package types

import (
	"fmt"
	"sort"
)

// Range is a half-open byte interval [From, To).
type Range struct {
	From uint64 `json:"from" bson:"from"`
	To   uint64 `json:"to" bson:"to"`
}

// Valid returns true if the range is well formed, i.e. From <= To.
func (r Range) Valid() bool {
	return r.From <= r.To
}

// Size returns the number of bytes in the range. Only meaningful for valid
// ranges.
func (r Range) Size() uint64 {
	return r.To - r.From
}

// Contains returns true if q lies entirely within r.
func (r Range) Contains(q Range) bool {
	return r.From <= q.From && q.To <= r.To
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.To)
}

// RangeSet is the set of byte ranges which are cached for a single key. Every
// method which returns a RangeSet returns it normalized: sorted by From, with
// overlapping and touching ranges merged.
type RangeSet struct {
	Ranges []Range `json:"ranges" bson:"ranges"`
}

// NewRangeSet returns a normalized RangeSet containing the given ranges.
func NewRangeSet(ranges ...Range) RangeSet {
	return RangeSet{Ranges: ranges}.Normalize()
}

// Normalize returns a copy of the set sorted by From, with every pair of
// ranges where a.To >= b.From merged into one. Touching ranges ([0,10) and
// [10,20)) are merged too, since once their boundary coincides they are one
// contiguous run of bytes. Empty ranges are dropped.
func (s RangeSet) Normalize() RangeSet {
	rs := make([]Range, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		if r.From < r.To {
			rs = append(rs, r)
		}
	}

	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].From < rs[j].From
	})

	// merge in place. after a merge, the merged range is checked against its
	// new neighbour before moving on.
	i := 0
	for i+1 < len(rs) {
		if rs[i].To >= rs[i+1].From {
			rs[i].From = min(rs[i].From, rs[i+1].From)
			rs[i].To = max(rs[i].To, rs[i+1].To)
			rs = append(rs[:i+1], rs[i+2:]...)
			continue
		}
		i++
	}

	return RangeSet{Ranges: rs}
}

// AddRange returns a new normalized set containing r plus every range in s.
// The receiver is not modified.
func (s RangeSet) AddRange(r Range) RangeSet {
	rs := make([]Range, 0, len(s.Ranges)+1)
	rs = append(rs, s.Ranges...)
	rs = append(rs, r)
	return RangeSet{Ranges: rs}.Normalize()
}

// ContainsRange returns true if a single range in the set covers q. This is
// only equivalent to "the union covers q" when the set is normalized.
func (s RangeSet) ContainsRange(q Range) bool {
	for _, r := range s.Ranges {
		if r.Contains(q) {
			return true
		}
	}

	return false
}

// Size returns the total number of bytes covered by the ranges in the set.
func (s RangeSet) Size() uint64 {
	var n uint64
	for _, r := range s.Ranges {
		n += r.Size()
	}
	return n
}

// Missing returns the parts of q which are not covered by the set, in order.
// The set must be normalized.
func (s RangeSet) Missing(q Range) []Range {
	if q.From >= q.To {
		return nil
	}

	var out []Range
	pos := q.From

	for _, r := range s.Ranges {
		if pos >= q.To {
			break
		}
		if r.To <= pos {
			continue
		}
		if r.From >= q.To {
			break
		}
		if r.From > pos {
			out = append(out, Range{From: pos, To: r.From})
		}
		pos = max(pos, r.To)
	}

	if pos < q.To {
		out = append(out, Range{From: pos, To: q.To})
	}

	return out
}

// Equal returns true if both sets contain exactly the same ranges in the same
// order.
func (s RangeSet) Equal(other RangeSet) bool {
	if len(s.Ranges) != len(other.Ranges) {
		return false
	}
	for i := range s.Ranges {
		if s.Ranges[i] != other.Ranges[i] {
			return false
		}
	}
	return true
}
