package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rs(ranges ...Range) RangeSet {
	return RangeSet{Ranges: ranges}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		in   RangeSet
		want []Range
	}{
		{
			name: "empty",
			in:   rs(),
			want: []Range{},
		},
		{
			name: "single",
			in:   rs(Range{0, 10}),
			want: []Range{{0, 10}},
		},
		{
			name: "touching ranges merge",
			in:   rs(Range{0, 10}, Range{10, 20}),
			want: []Range{{0, 20}},
		},
		{
			name: "inner range is absorbed",
			in:   rs(Range{0, 20}, Range{5, 15}),
			want: []Range{{0, 20}},
		},
		{
			name: "overlapping",
			in:   rs(Range{0, 10}, Range{5, 15}),
			want: []Range{{0, 15}},
		},
		{
			name: "disjoint are sorted",
			in:   rs(Range{20, 30}, Range{0, 10}),
			want: []Range{{0, 10}, {20, 30}},
		},
		{
			name: "one gap byte keeps ranges apart",
			in:   rs(Range{0, 10}, Range{11, 20}),
			want: []Range{{0, 10}, {11, 20}},
		},
		{
			name: "merged range is rechecked against next neighbour",
			in:   rs(Range{0, 10}, Range{5, 25}, Range{20, 30}, Range{40, 50}),
			want: []Range{{0, 30}, {40, 50}},
		},
		{
			name: "wide range swallows many",
			in:   rs(Range{10, 12}, Range{14, 16}, Range{18, 20}, Range{0, 100}),
			want: []Range{{0, 100}},
		},
		{
			name: "empty ranges are dropped",
			in:   rs(Range{5, 5}, Range{10, 20}, Range{30, 30}),
			want: []Range{{10, 20}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalize()
			assert.Equal(t, tc.want, got.Ranges)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	sets := []RangeSet{
		rs(),
		rs(Range{0, 10}, Range{10, 20}),
		rs(Range{30, 40}, Range{0, 5}, Range{3, 8}, Range{8, 9}, Range{50, 60}),
		rs(Range{100, 200}, Range{0, 1}, Range{199, 300}),
	}

	for _, s := range sets {
		once := s.Normalize()
		twice := once.Normalize()
		assert.True(t, once.Equal(twice), "once=%v twice=%v", once, twice)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := rs(Range{10, 20}, Range{0, 10})
	_ = in.Normalize()
	assert.Equal(t, []Range{{10, 20}, {0, 10}}, in.Ranges)
}

func TestAddRange(t *testing.T) {
	s := NewRangeSet(Range{0, 10})

	s2 := s.AddRange(Range{20, 30})
	assert.Equal(t, []Range{{0, 10}, {20, 30}}, s2.Ranges)
	assert.Equal(t, []Range{{0, 10}}, s.Ranges)

	s3 := s2.AddRange(Range{10, 20})
	assert.Equal(t, []Range{{0, 30}}, s3.Ranges)
}

func TestSize(t *testing.T) {
	assert.Equal(t, uint64(0), rs().Size())
	assert.Equal(t, uint64(15), rs(Range{0, 10}, Range{5, 15}).Normalize().Size())
	assert.Equal(t, uint64(20), rs(Range{0, 10}, Range{20, 30}).Size())
}

func TestContainsRange(t *testing.T) {
	assert.True(t, NewRangeSet(Range{0, 20}).ContainsRange(Range{5, 15}))
	assert.False(t, NewRangeSet(Range{0, 10}).ContainsRange(Range{5, 15}))
	assert.True(t, NewRangeSet(Range{0, 10}).ContainsRange(Range{0, 10}))
	assert.False(t, NewRangeSet().ContainsRange(Range{0, 1}))

	// two touching ranges only count once merged.
	unmerged := rs(Range{0, 10}, Range{10, 20})
	assert.False(t, unmerged.ContainsRange(Range{5, 15}))
	assert.True(t, unmerged.Normalize().ContainsRange(Range{5, 15}))
}

func TestMissing(t *testing.T) {
	s := NewRangeSet(Range{10, 20}, Range{30, 40})

	testCases := []struct {
		q    Range
		want []Range
	}{
		{Range{0, 10}, []Range{{0, 10}}},
		{Range{10, 20}, nil},
		{Range{12, 18}, nil},
		{Range{5, 35}, []Range{{5, 10}, {20, 30}}},
		{Range{0, 50}, []Range{{0, 10}, {20, 30}, {40, 50}}},
		{Range{35, 45}, []Range{{40, 45}}},
		{Range{7, 7}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.q.String(), func(t *testing.T) {
			require.Equal(t, tc.want, s.Missing(tc.q))
		})
	}
}

func TestRangeValid(t *testing.T) {
	assert.True(t, Range{0, 0}.Valid())
	assert.True(t, Range{1, 2}.Valid())
	assert.False(t, Range{2, 1}.Valid())
	assert.Equal(t, "[3,9)", Range{3, 9}.String())
}
