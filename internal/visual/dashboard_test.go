package visual

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muhurta/internal/forecast"
	"muhurta/internal/jyotish"
	"muhurta/internal/service"
)

func sampleForecast(records int) *service.Forecast {
	f := &service.Forecast{
		RunID:      "run-1",
		Market:     "nse",
		MarketName: "NSE",
		Date:       "2026-08-21",
	}
	base := time.Date(2026, 8, 21, 9, 15, 0, 0, time.UTC)
	for i := 0; i < records; i++ {
		inst := base.Add(time.Duration(i) * time.Minute)
		rec := forecast.PredictionRecord{
			Instant:      inst,
			TimeLabel:    inst.Format("15:04"),
			Segment:      "Ashwini",
			SegmentRuler: jyotish.Ketu,
			Volatility:   0.5,
			Direction:    jyotish.DirectionBullish,
			Influence:    float64(i) * 0.2,
		}
		rec.Major = jyotish.Venus
		rec.Sub = jyotish.Sun
		f.Records = append(f.Records, rec)
	}
	f.Summary = forecast.Summarize(f.Records)
	f.Advice = forecast.Advise(f.Summary)
	f.Transitions = forecast.SegmentTransitions(f.Records)
	return f
}

func TestBuildDashboardHTML(t *testing.T) {
	t.Run("Renders All Charts", func(t *testing.T) {
		html, err := BuildDashboardHTML(DashboardInput{Title: "Muhurta", Forecast: sampleForecast(5)})
		require.NoError(t, err)
		body := string(html)
		assert.Contains(t, body, "Muhurta · NSE 2026-08-21")
		assert.Contains(t, body, "Volatility")
		assert.Contains(t, body, "High Influence")
		assert.Contains(t, body, "Influence by Mahadasha / Bhukti / Nakshatra Lord")
	})

	t.Run("Injects Summary Header", func(t *testing.T) {
		html, err := BuildDashboardHTML(DashboardInput{Forecast: sampleForecast(5)})
		require.NoError(t, err)
		body := string(html)
		assert.Contains(t, body, "Avg Volatility")
		assert.Contains(t, body, "Session Dashboard")
	})

	t.Run("Empty Forecast Is Rejected", func(t *testing.T) {
		_, err := BuildDashboardHTML(DashboardInput{Forecast: &service.Forecast{}})
		assert.Error(t, err)
	})
}

func TestHighInfluencePoints(t *testing.T) {
	f := sampleForecast(5)
	points := highInfluencePoints(f.Records)
	require.Len(t, points, 5)
	// 0.0..0.8，只有最后一条越过 0.7。
	for i := 0; i < 4; i++ {
		assert.Nil(t, points[i].Value, fmt.Sprintf("index %d", i))
	}
	assert.NotNil(t, points[4].Value)
}

func TestTopCombinations(t *testing.T) {
	f := sampleForecast(3)
	f.Records[2].SegmentRuler = jyotish.Mars

	combos := topCombinations(f.Records)
	require.Len(t, combos, 2)
	assert.Equal(t, "Venus/Sun/Ketu", combos[0])
	assert.Equal(t, "Venus/Sun/Mars", combos[1])
}
