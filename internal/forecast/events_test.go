package forecast

import (
	"testing"

	"muhurta/internal/jyotish"
	"muhurta/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = []rules.Rule{
	{Kind: rules.KindDashaPair, Major: jyotish.Rahu, Sub: jyotish.Mars,
		Label: "Rahu-Mars combination - High volatility expected"},
	{Kind: rules.KindSegmentMajor, Major: jyotish.Jupiter, SegmentRuler: jyotish.Jupiter,
		Label: "Double Jupiter influence - Bullish bias"},
}

func segmentNamed(name string, ruler jyotish.Graha) jyotish.Segment {
	for _, seg := range jyotish.Segments() {
		if seg.Name == name {
			return seg
		}
	}
	return jyotish.Segment{Name: name, Ruler: ruler}
}

func TestDetectEvents(t *testing.T) {
	calm := jyotish.CycleState{Major: jyotish.Venus, Sub: jyotish.Sun, MajorProgress: 0.5, SubProgress: 0.5}

	t.Run("Quiet Minute Has No Events", func(t *testing.T) {
		events := DetectEvents(segmentNamed("Rohini", jyotish.Moon), 0.5, calm, testRules)
		assert.Empty(t, events)
	})

	t.Run("Thresholds Are Strict", func(t *testing.T) {
		events := DetectEvents(segmentNamed("Rohini", jyotish.Moon), 0.95, calm, testRules)
		assert.Empty(t, events)

		edge := jyotish.CycleState{Major: jyotish.Venus, Sub: jyotish.Sun, MajorProgress: 0.98, SubProgress: 0.98}
		events = DetectEvents(segmentNamed("Rohini", jyotish.Moon), 0.5, edge, testRules)
		assert.Empty(t, events)
	})

	t.Run("Segment End Carries Name", func(t *testing.T) {
		events := DetectEvents(segmentNamed("Rohini", jyotish.Moon), 0.9501, calm, testRules)
		require.Len(t, events, 1)
		assert.Equal(t, "Approaching Rohini end", events[0])
	})

	t.Run("Cycle Handovers", func(t *testing.T) {
		late := jyotish.CycleState{Major: jyotish.Venus, Sub: jyotish.Sun, MajorProgress: 0.99, SubProgress: 0.985}
		events := DetectEvents(segmentNamed("Rohini", jyotish.Moon), 0.5, late, testRules)
		assert.Equal(t, []string{"Mahadasha change imminent", "Bhukti change imminent"}, events)
	})

	t.Run("Pair Rule Fires", func(t *testing.T) {
		cycle := jyotish.CycleState{Major: jyotish.Rahu, Sub: jyotish.Mars, MajorProgress: 0.4, SubProgress: 0.4}
		events := DetectEvents(segmentNamed("Rohini", jyotish.Moon), 0.5, cycle, testRules)
		assert.Equal(t, []string{"Rahu-Mars combination - High volatility expected"}, events)
	})

	t.Run("Double Jupiter Fires On Segment And Major", func(t *testing.T) {
		cycle := jyotish.CycleState{Major: jyotish.Jupiter, Sub: jyotish.Venus, MajorProgress: 0.4, SubProgress: 0.4}
		events := DetectEvents(segmentNamed("Punarvasu", jyotish.Jupiter), 0.5, cycle, testRules)
		assert.Equal(t, []string{"Double Jupiter influence - Bullish bias"}, events)

		// 星区主星是 Jupiter 但大运不是 → 不触发
		other := jyotish.CycleState{Major: jyotish.Venus, Sub: jyotish.Jupiter, MajorProgress: 0.4, SubProgress: 0.4}
		events = DetectEvents(segmentNamed("Punarvasu", jyotish.Jupiter), 0.5, other, testRules)
		assert.Empty(t, events)
	})

	t.Run("Fixed Event Order", func(t *testing.T) {
		cycle := jyotish.CycleState{Major: jyotish.Rahu, Sub: jyotish.Mars, MajorProgress: 0.99, SubProgress: 0.99}
		events := DetectEvents(segmentNamed("Ardra", jyotish.Rahu), 0.96, cycle, testRules)
		assert.Equal(t, []string{
			"Approaching Ardra end",
			"Mahadasha change imminent",
			"Bhukti change imminent",
			"Rahu-Mars combination - High volatility expected",
		}, events)
	})
}
