package forecast

import (
	"fmt"
	"testing"

	"muhurta/internal/jyotish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteRecord(i int, vol float64, dir jyotish.Direction, influence float64) PredictionRecord {
	return PredictionRecord{
		TimeLabel:    fmt.Sprintf("09:%02d", i),
		Volatility:   vol,
		Direction:    dir,
		Influence:    influence,
		CycleState:   jyotish.CycleState{Major: jyotish.Venus, Sub: jyotish.Sun},
		Segment:      "Rohini",
		SegmentRuler: jyotish.Moon,
	}
}

func flatRecords(n int, vol float64, dir jyotish.Direction) []PredictionRecord {
	out := make([]PredictionRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, minuteRecord(i, vol, dir, vol))
	}
	return out
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.Records)
	assert.Equal(t, "no data", summary.Character)
	assert.Empty(t, summary.NotableWindows)
	assert.Empty(t, summary.DominantRulers)
	assert.Zero(t, summary.Confidence)
	assert.Zero(t, summary.AverageVolatility)
	assert.Empty(t, summary.Risk.Level)

	assert.Equal(t, TradingAdvice{}, Advise(summary))
}

func TestSummarizeDirectionAndConfidence(t *testing.T) {
	records := []PredictionRecord{
		minuteRecord(0, 0.4, jyotish.DirectionBullish, 0.4),
		minuteRecord(1, 0.4, jyotish.DirectionBullish, 0.4),
		minuteRecord(2, 0.4, jyotish.DirectionBullish, 0.4),
		minuteRecord(3, 0.4, jyotish.DirectionBearish, 0.4),
	}
	summary := Summarize(records)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, jyotish.DirectionBullish, summary.Direction)
	assert.InDelta(t, 0.75, summary.Confidence, 1e-9)
	assert.Equal(t, "Stable Bullish", summary.Character)
}

func TestSummarizeDirectionTie(t *testing.T) {
	records := []PredictionRecord{
		minuteRecord(0, 0.4, jyotish.DirectionBearish, 0.4),
		minuteRecord(1, 0.4, jyotish.DirectionBullish, 0.4),
	}
	summary := Summarize(records)
	// 平票走裁决顺序，bullish 优先。
	assert.Equal(t, jyotish.DirectionBullish, summary.Direction)
	assert.InDelta(t, 0.5, summary.Confidence, 1e-9)
}

func TestSummarizeCharacterBuckets(t *testing.T) {
	assert.Equal(t, "Highly Volatile", Summarize(flatRecords(4, 0.8, jyotish.DirectionBullish)).Character)
	// 均值恰为 0.7 不算高波动（严格大于）。
	assert.Equal(t, "Moderately Volatile Bullish", Summarize(flatRecords(1, 0.7, jyotish.DirectionBullish)).Character)
	assert.Equal(t, "Moderately Volatile Bearish", Summarize(flatRecords(4, 0.6, jyotish.DirectionBearish)).Character)
	assert.Equal(t, "Stable Uncertain", Summarize(flatRecords(4, 0.5, jyotish.DirectionUncertain)).Character)
	assert.Equal(t, "Stable Neutral", Summarize(flatRecords(4, 0.3, jyotish.DirectionNeutral)).Character)
}

func TestSummarizeNotableWindows(t *testing.T) {
	var records []PredictionRecord
	// 5 个高波动分钟 → 只列前 3 个时间
	for i := 0; i < 5; i++ {
		records = append(records, minuteRecord(i, 0.75, jyotish.DirectionNeutral, 0.5))
	}
	// 3 个强 bullish → 只列前 2 个
	for i := 5; i < 8; i++ {
		records = append(records, minuteRecord(i, 0.5, jyotish.DirectionBullish, 0.8))
	}
	// 1 个强 bearish
	records = append(records, minuteRecord(8, 0.5, jyotish.DirectionBearish, 0.9))
	// 普通分钟
	records = append(records, minuteRecord(9, 0.3, jyotish.DirectionNeutral, 0.3))

	summary := Summarize(records)
	require.Len(t, summary.NotableWindows, 3)

	high := summary.NotableWindows[0]
	assert.Equal(t, "High Volatility", high.Type)
	assert.Equal(t, []string{"09:00", "09:01", "09:02"}, high.Times)
	assert.Equal(t, "Very High", high.Intensity)
	assert.Equal(t, "Caution - Tight stop losses", high.Recommendation)

	bull := summary.NotableWindows[1]
	assert.Equal(t, "Strong Bullish Bias", bull.Type)
	assert.Equal(t, []string{"09:05", "09:06"}, bull.Times)
	assert.Equal(t, "High", bull.Intensity)
	assert.Equal(t, "Good for long entries", bull.Recommendation)

	bear := summary.NotableWindows[2]
	assert.Equal(t, "Strong Bearish Bias", bear.Type)
	assert.Equal(t, []string{"09:08"}, bear.Times)
	assert.Equal(t, "Consider short positions", bear.Recommendation)
}

func TestSummarizeInfluenceAtThresholdExcluded(t *testing.T) {
	// 影响力恰为 0.7 不计入强方向时段（严格大于）。
	records := []PredictionRecord{minuteRecord(0, 0.5, jyotish.DirectionBullish, 0.7)}
	summary := Summarize(records)
	assert.Empty(t, summary.NotableWindows)
}

func TestSummarizeRiskBuckets(t *testing.T) {
	mixed := func(highVol, total int) []PredictionRecord {
		out := make([]PredictionRecord, 0, total)
		for i := 0; i < total; i++ {
			vol := 0.3
			if i < highVol {
				vol = 0.8
			}
			out = append(out, minuteRecord(i, vol, jyotish.DirectionNeutral, vol))
		}
		return out
	}

	t.Run("Above Thirty Percent Is High", func(t *testing.T) {
		risk := Summarize(mixed(31, 100)).Risk
		assert.Equal(t, RiskHigh, risk.Level)
		assert.Equal(t, "Reduce position sizing", risk.Advice)
		assert.InDelta(t, 0.31, risk.HighVolRatio, 1e-9)
	})

	t.Run("Exactly Thirty Percent Is Medium", func(t *testing.T) {
		risk := Summarize(mixed(30, 100)).Risk
		assert.Equal(t, RiskMedium, risk.Level)
		assert.Equal(t, "Normal caution advised", risk.Advice)
	})

	t.Run("Exactly Fifteen Percent Is Low", func(t *testing.T) {
		risk := Summarize(mixed(15, 100)).Risk
		assert.Equal(t, RiskLow, risk.Level)
		assert.Equal(t, "Favorable for trading", risk.Advice)
	})

	t.Run("Just Above Fifteen Percent Is Medium", func(t *testing.T) {
		risk := Summarize(mixed(16, 100)).Risk
		assert.Equal(t, RiskMedium, risk.Level)
	})
}

func TestSummarizeDominantRulers(t *testing.T) {
	records := []PredictionRecord{
		{TimeLabel: "09:00", Volatility: 0.4, Direction: jyotish.DirectionNeutral,
			CycleState:   jyotish.CycleState{Major: jyotish.Rahu, Sub: jyotish.Mars},
			SegmentRuler: jyotish.Venus},
		{TimeLabel: "09:01", Volatility: 0.4, Direction: jyotish.DirectionNeutral,
			CycleState:   jyotish.CycleState{Major: jyotish.Rahu, Sub: jyotish.Venus},
			SegmentRuler: jyotish.Venus},
		{TimeLabel: "09:02", Volatility: 0.4, Direction: jyotish.DirectionNeutral,
			CycleState:   jyotish.CycleState{Major: jyotish.Mars, Sub: jyotish.Ketu},
			SegmentRuler: jyotish.Ketu},
	}
	shares := Summarize(records).DominantRulers
	require.Len(t, shares, 3)

	// Venus 3 票居首；Rahu/Mars/Ketu 各 2 票，按首次出现顺序取 Rahu、Mars。
	assert.Equal(t, jyotish.Venus, shares[0].Graha)
	assert.Equal(t, 3, shares[0].Count)
	assert.InDelta(t, 100.0*3.0/9.0, shares[0].Percentage, 1e-9)

	assert.Equal(t, jyotish.Rahu, shares[1].Graha)
	assert.Equal(t, 2, shares[1].Count)
	assert.Equal(t, jyotish.Mars, shares[2].Graha)
	assert.Equal(t, 2, shares[2].Count)
}

func TestAdvise(t *testing.T) {
	t.Run("High Risk Bearish", func(t *testing.T) {
		advice := Advise(SessionSummary{
			Records:   10,
			Direction: jyotish.DirectionBearish,
			Risk:      RiskAssessment{Level: RiskHigh, Advice: "Reduce position sizing"},
		})
		assert.Equal(t, "10-15% of capital", advice.PositionSize)
		assert.Equal(t, "Tight (0.5-1%)", advice.StopLoss)
		assert.Equal(t, "Short bias - Sell on rallies", advice.Strategy)
		assert.Equal(t, "Reduce position sizing", advice.RiskNote)
	})

	t.Run("Medium Risk Bullish", func(t *testing.T) {
		advice := Advise(SessionSummary{
			Records:   10,
			Direction: jyotish.DirectionBullish,
			Risk:      RiskAssessment{Level: RiskMedium},
		})
		assert.Equal(t, "20-25% of capital", advice.PositionSize)
		assert.Equal(t, "Normal (1-2%)", advice.StopLoss)
		assert.Equal(t, "Long bias - Buy on dips", advice.Strategy)
	})

	t.Run("Low Risk Sideways", func(t *testing.T) {
		advice := Advise(SessionSummary{
			Records:   10,
			Direction: jyotish.DirectionNeutral,
			Risk:      RiskAssessment{Level: RiskLow},
		})
		assert.Equal(t, "30-40% of capital", advice.PositionSize)
		assert.Equal(t, "Relaxed (2-3%)", advice.StopLoss)
		assert.Equal(t, "Range trading - Fade extremes", advice.Strategy)
	})
}
