package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"muhurta/internal/ephem"
	"muhurta/internal/jyotish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var istZone = time.FixedZone("IST", 5*3600+30*60)

var nseEpoch = time.Date(1992, 7, 1, 9, 15, 0, 0, istZone)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) MoonLongitude(ctx context.Context, t time.Time) (float64, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(float64), args.Error(1)
}

func analyticGenerator(t *testing.T, workers int) *Generator {
	t.Helper()
	svc, err := ephem.NewService(ephem.NewAnalyticProvider(), 0)
	require.NoError(t, err)
	return NewGenerator(svc, nseEpoch, testRules, workers)
}

func TestGenerate(t *testing.T) {
	day := time.Date(2026, 8, 21, 0, 0, 0, 0, istZone)
	open := day.Add(9*time.Hour + 15*time.Minute)
	sessionEnd := day.Add(15*time.Hour + 30*time.Minute)

	t.Run("One Record Per Whole Minute Inclusive", func(t *testing.T) {
		g := analyticGenerator(t, 1)
		records, err := g.Generate(context.Background(), open, open.Add(5*time.Minute))
		require.NoError(t, err)
		require.Len(t, records, 6)
		assert.Equal(t, "09:15", records[0].TimeLabel)
		assert.Equal(t, "09:20", records[5].TimeLabel)
		for i := 1; i < len(records); i++ {
			assert.Equal(t, time.Minute, records[i].Instant.Sub(records[i-1].Instant))
		}
	})

	t.Run("Single Minute Window", func(t *testing.T) {
		g := analyticGenerator(t, 1)
		records, err := g.Generate(context.Background(), open, open)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, open, records[0].Instant)
	})

	t.Run("Inverted Window Is Empty", func(t *testing.T) {
		g := analyticGenerator(t, 4)
		records, err := g.Generate(context.Background(), sessionEnd, open)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("Record Fields Populated", func(t *testing.T) {
		g := analyticGenerator(t, 1)
		records, err := g.Generate(context.Background(), open, open)
		require.NoError(t, err)
		rec := records[0]
		assert.GreaterOrEqual(t, rec.MoonLongitude, 0.0)
		assert.Less(t, rec.MoonLongitude, 360.0)
		assert.NotEmpty(t, rec.Segment)
		assert.NotEmpty(t, string(rec.SegmentRuler))
		assert.NotEmpty(t, string(rec.Major))
		assert.NotEmpty(t, string(rec.Sub))
		assert.Greater(t, rec.Volatility, 0.0)
		assert.NotEmpty(t, string(rec.Direction))
		assert.GreaterOrEqual(t, rec.SegmentProgress, 0.0)
		assert.Less(t, rec.SegmentProgress, 1.0)
		assert.NotNil(t, rec.Events)
	})

	t.Run("Parallel Output Matches Serial", func(t *testing.T) {
		serial, err := analyticGenerator(t, 1).Generate(context.Background(), open, sessionEnd)
		require.NoError(t, err)
		parallel, err := analyticGenerator(t, 8).Generate(context.Background(), open, sessionEnd)
		require.NoError(t, err)
		require.Len(t, serial, 376)
		assert.Equal(t, serial, parallel)
	})

	t.Run("Deterministic Across Runs", func(t *testing.T) {
		g := analyticGenerator(t, 4)
		first, err := g.Generate(context.Background(), open, open.Add(30*time.Minute))
		require.NoError(t, err)
		second, err := g.Generate(context.Background(), open, open.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Provider Failure Aborts Whole Run", func(t *testing.T) {
		boom := errors.New("ephemeris offline")
		failAt := open.Add(3 * time.Minute)

		prov := new(MockProvider)
		prov.On("MoonLongitude", mock.Anything, mock.MatchedBy(func(at time.Time) bool {
			return at.Equal(failAt)
		})).Return(0.0, boom)
		prov.On("MoonLongitude", mock.Anything, mock.Anything).Return(123.45, nil)

		svc, err := ephem.NewService(prov, 0)
		require.NoError(t, err)
		g := NewGenerator(svc, nseEpoch, testRules, 2)

		records, err := g.Generate(context.Background(), open, open.Add(10*time.Minute))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, records)
	})

	t.Run("Pre Epoch Window Rejected", func(t *testing.T) {
		g := analyticGenerator(t, 1)
		before := nseEpoch.Add(-time.Hour)
		records, err := g.Generate(context.Background(), before, before.Add(2*time.Minute))
		require.Error(t, err)
		assert.ErrorIs(t, err, jyotish.ErrBeforeEpoch)
		assert.Nil(t, records)
	})
}

func TestSegmentTransitions(t *testing.T) {
	records := []PredictionRecord{
		{TimeLabel: "09:15", Segment: "Rohini"},
		{TimeLabel: "09:16", Segment: "Rohini"},
		{TimeLabel: "09:17", Segment: "Mrigashira"},
		{TimeLabel: "09:18", Segment: "Mrigashira"},
	}
	transitions := SegmentTransitions(records)
	require.Len(t, transitions, 1)
	assert.Equal(t, 2, transitions[0].Index)
	assert.Equal(t, "09:17", transitions[0].TimeLabel)
	assert.Equal(t, "Rohini", transitions[0].From)
	assert.Equal(t, "Mrigashira", transitions[0].To)

	assert.Empty(t, SegmentTransitions(nil))
	assert.Empty(t, SegmentTransitions(records[:1]))
}
