package jyotish

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(1992, 7, 1, 9, 15, 0, 0, time.FixedZone("IST", 5*3600+30*60))

func TestCycleLengthDays(t *testing.T) {
	// 120 年整周期恰好 43830 天。
	assert.Equal(t, 43830.0, CycleLengthDays())
}

func TestResolveDasha(t *testing.T) {
	t.Run("Epoch Starts First Ruler", func(t *testing.T) {
		state, err := ResolveDasha(testEpoch, testEpoch)
		require.NoError(t, err)
		assert.Equal(t, Ketu, state.Major)
		assert.Equal(t, Ketu, state.Sub)
		assert.Equal(t, 0.0, state.MajorProgress)
		assert.Equal(t, 0.0, state.SubProgress)
	})

	t.Run("Before Epoch Rejected", func(t *testing.T) {
		_, err := ResolveDasha(testEpoch.Add(-time.Minute), testEpoch)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBeforeEpoch)
	})

	t.Run("Partial Days Truncate", func(t *testing.T) {
		day1, err := ResolveDasha(testEpoch.Add(24*time.Hour), testEpoch)
		require.NoError(t, err)
		day1later, err := ResolveDasha(testEpoch.Add(36*time.Hour), testEpoch)
		require.NoError(t, err)
		assert.Equal(t, day1, day1later)

		sameDay, err := ResolveDasha(testEpoch.Add(23*time.Hour), testEpoch)
		require.NoError(t, err)
		epochState, err := ResolveDasha(testEpoch, testEpoch)
		require.NoError(t, err)
		assert.Equal(t, epochState, sameDay)
	})

	t.Run("Major Ruler Handover", func(t *testing.T) {
		// Ketu 大运 7*365.25 = 2556.75 天，第 2556 天仍在 Ketu，第 2557 天进入 Venus。
		last, err := ResolveDasha(testEpoch.Add(2556*24*time.Hour), testEpoch)
		require.NoError(t, err)
		assert.Equal(t, Ketu, last.Major)
		assert.Greater(t, last.MajorProgress, 0.98)
		assert.Equal(t, Mercury, last.Sub)

		next, err := ResolveDasha(testEpoch.Add(2557*24*time.Hour), testEpoch)
		require.NoError(t, err)
		assert.Equal(t, Venus, next.Major)
		assert.Equal(t, Ketu, next.Sub)
		assert.Less(t, next.MajorProgress, 0.001)
	})

	t.Run("Sub Periods Follow Fixed Order", func(t *testing.T) {
		// 每个大运的中点都应落在固定顺序的第 5 个小运（Mars），不随大运主星旋转。
		acc := 0.0
		for _, g := range DashaOrder() {
			span := float64(DashaYears(g)) * 365.25
			mid := math.Floor(acc + span/2)
			state, err := ResolveDasha(testEpoch.Add(time.Duration(mid)*24*time.Hour), testEpoch)
			require.NoError(t, err)
			assert.Equal(t, g, state.Major, "midpoint of %s major", g)
			assert.Equal(t, Mars, state.Sub, "midpoint sub of %s major", g)
			acc += span
		}
	})

	t.Run("Progress Stays In Unit Interval", func(t *testing.T) {
		for days := 0; days < 44000; days += 37 {
			state, err := ResolveDasha(testEpoch.Add(time.Duration(days)*24*time.Hour), testEpoch)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, state.MajorProgress, 0.0, "day %d", days)
			assert.Less(t, state.MajorProgress, 1.0, "day %d", days)
			assert.GreaterOrEqual(t, state.SubProgress, 0.0, "day %d", days)
			assert.Less(t, state.SubProgress, 1.0, "day %d", days)
		}
	})

	t.Run("Cycle Wraps After 120 Years", func(t *testing.T) {
		wrapped, err := ResolveDasha(testEpoch.Add(43830*24*time.Hour), testEpoch)
		require.NoError(t, err)
		assert.Equal(t, Ketu, wrapped.Major)
		assert.Equal(t, Ketu, wrapped.Sub)
		assert.Equal(t, 0.0, wrapped.MajorProgress)
	})

	t.Run("Spans Conserve Cycle Total", func(t *testing.T) {
		total := 0.0
		for _, g := range DashaOrder() {
			span := float64(DashaYears(g)) * 365.25
			subSum := 0.0
			for i := 0; i < 9; i++ {
				subSum += span / 9
			}
			assert.InDelta(t, span, subSum, 1e-9, "sub spans of %s", g)
			total += span
		}
		assert.Equal(t, CycleLengthDays(), total)
	})
}
