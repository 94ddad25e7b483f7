package jyotish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentTable(t *testing.T) {
	segs := Segments()
	require.Len(t, segs, 27)

	t.Run("Partition Without Gaps", func(t *testing.T) {
		assert.Equal(t, 0.0, segs[0].Start)
		assert.Equal(t, 360.0, segs[len(segs)-1].End)
		for i := 1; i < len(segs); i++ {
			assert.Equal(t, segs[i-1].End, segs[i].Start, "segment %d must begin where %d ends", i, i-1)
		}
	})

	t.Run("Computed Boundaries", func(t *testing.T) {
		for i, seg := range segs {
			assert.Equal(t, float64(i)*SegmentSpan, seg.Start)
			assert.Equal(t, float64(i+1)*SegmentSpan, seg.End)
			assert.InDelta(t, SegmentSpan, seg.End-seg.Start, 1e-9)
		}
	})

	t.Run("Ruler Cycle Repeats Three Times", func(t *testing.T) {
		order := DashaOrder()
		for i, seg := range segs {
			assert.Equal(t, order[i%len(order)], seg.Ruler, "segment %d (%s)", i, seg.Name)
		}
		assert.Equal(t, Ketu, segs[0].Ruler)
		assert.Equal(t, Mercury, segs[8].Ruler)
		assert.Equal(t, Ketu, segs[9].Ruler)
		assert.Equal(t, Mercury, segs[26].Ruler)
	})

	t.Run("Names In Zodiac Order", func(t *testing.T) {
		assert.Equal(t, "Ashwini", segs[0].Name)
		assert.Equal(t, "Rohini", segs[3].Name)
		assert.Equal(t, "Magha", segs[9].Name)
		assert.Equal(t, "Mula", segs[18].Name)
		assert.Equal(t, "Revati", segs[26].Name)
		seen := make(map[string]bool, len(segs))
		for _, seg := range segs {
			assert.False(t, seen[seg.Name], "duplicate name %s", seg.Name)
			seen[seg.Name] = true
		}
	})
}

func TestResolveSegment(t *testing.T) {
	t.Run("Sweep Stays Inside Resolved Segment", func(t *testing.T) {
		for l := 0.0; l < 360.0; l += 0.01 {
			seg, progress, err := ResolveSegment(l)
			require.NoError(t, err)
			assert.LessOrEqual(t, seg.Start, l)
			assert.Less(t, l, seg.End)
			assert.GreaterOrEqual(t, progress, 0.0)
			assert.Less(t, progress, 1.0)
		}
	})

	t.Run("Boundary Belongs To Starting Segment", func(t *testing.T) {
		for _, seg := range Segments() {
			got, progress, err := ResolveSegment(seg.Start)
			require.NoError(t, err)
			assert.Equal(t, seg.Index, got.Index)
			assert.Equal(t, 0.0, progress)
		}
	})

	t.Run("Full Circle Falls Back To First Segment", func(t *testing.T) {
		seg, progress, err := ResolveSegment(360)
		require.NoError(t, err)
		assert.Equal(t, 0, seg.Index)
		assert.Equal(t, "Ashwini", seg.Name)
		assert.Equal(t, 0.0, progress)
	})

	t.Run("Out Of Range Rejected", func(t *testing.T) {
		_, _, err := ResolveSegment(-0.001)
		assert.Error(t, err)
		_, _, err = ResolveSegment(360.001)
		assert.Error(t, err)
	})

	t.Run("Known Positions", func(t *testing.T) {
		seg, progress, err := ResolveSegment(50)
		require.NoError(t, err)
		assert.Equal(t, "Rohini", seg.Name)
		assert.Equal(t, Moon, seg.Ruler)
		assert.InDelta(t, 0.75, progress, 1e-9)

		seg, _, err = ResolveSegment(359.9)
		require.NoError(t, err)
		assert.Equal(t, "Revati", seg.Name)
	})
}

func TestParseGraha(t *testing.T) {
	g, err := ParseGraha("rahu")
	require.NoError(t, err)
	assert.Equal(t, Rahu, g)

	g, err = ParseGraha(" Jupiter ")
	require.NoError(t, err)
	assert.Equal(t, Jupiter, g)

	_, err = ParseGraha("Pluto")
	assert.Error(t, err)
}

func TestTraitsTable(t *testing.T) {
	mars := TraitsOf(Mars)
	assert.Equal(t, 0.9, mars.Volatility)
	assert.Equal(t, DirectionBearish, mars.Direction)

	jupiter := TraitsOf(Jupiter)
	assert.Equal(t, 0.2, jupiter.Volatility)
	assert.Equal(t, DirectionBullish, jupiter.Direction)
	assert.Equal(t, "expansion_growth", jupiter.Style)

	total := 0
	for _, g := range DashaOrder() {
		total += DashaYears(g)
		assert.NotEmpty(t, TraitsOf(g).Style, "traits missing for %s", g)
	}
	assert.Equal(t, 120, total)
}
