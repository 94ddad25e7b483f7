package forecast

import (
	"testing"

	"muhurta/internal/jyotish"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	t.Run("Weighted Blend", func(t *testing.T) {
		// Mars 0.9 / Jupiter 0.2 / Moon 0.5 → 0.4*0.9 + 0.3*0.2 + 0.3*0.5 = 0.57
		vol, _, _ := Score(jyotish.Moon, jyotish.Mars, jyotish.Jupiter)
		assert.InDelta(t, 0.57, vol, 1e-9)
	})

	t.Run("Majority Direction Wins", func(t *testing.T) {
		// bullish, bullish, bearish → bullish 2:1
		_, dir, _ := Score(jyotish.Mars, jyotish.Venus, jyotish.Sun)
		assert.Equal(t, jyotish.DirectionBullish, dir)
	})

	t.Run("Three Way Tie Uses Ballot Order", func(t *testing.T) {
		// bearish, bullish, neutral 各一票 → bullish 优先
		_, dir, _ := Score(jyotish.Moon, jyotish.Mars, jyotish.Jupiter)
		assert.Equal(t, jyotish.DirectionBullish, dir)

		// bearish, neutral, uncertain 各一票 → bearish 先于 neutral/uncertain
		_, dir, _ = Score(jyotish.Ketu, jyotish.Mars, jyotish.Moon)
		assert.Equal(t, jyotish.DirectionBearish, dir)
	})

	t.Run("No Boost Without Alignment", func(t *testing.T) {
		vol, _, influence := Score(jyotish.Moon, jyotish.Mars, jyotish.Jupiter)
		assert.Equal(t, vol, influence)
	})

	t.Run("Alignment Boost", func(t *testing.T) {
		// Jupiter/Venus/Venus 全 bullish：0.26 → 0.26*1.3 = 0.338
		vol, dir, influence := Score(jyotish.Venus, jyotish.Jupiter, jyotish.Venus)
		assert.InDelta(t, 0.26, vol, 1e-9)
		assert.Equal(t, jyotish.DirectionBullish, dir)
		assert.InDelta(t, 0.338, influence, 1e-9)
	})

	t.Run("Boost Capped At One", func(t *testing.T) {
		// Mars 三方全 bearish：0.9*1.3 封顶到 1.0
		vol, dir, influence := Score(jyotish.Mars, jyotish.Mars, jyotish.Mars)
		assert.InDelta(t, 0.9, vol, 1e-9)
		assert.Equal(t, jyotish.DirectionBearish, dir)
		assert.Equal(t, 1.0, influence)
	})
}
