package forecast

import (
	"math"

	"muhurta/internal/jyotish"
)

// 三方融合权重：大运、小运、星区。
const (
	weightMajor   = 0.4
	weightSub     = 0.3
	weightSegment = 0.3
)

// alignmentBoost 三方方向一致时的影响力放大系数，结果封顶 1.0。
const alignmentBoost = 1.3

// directionBallot 方向票数持平时按此顺序裁决。
var directionBallot = [...]jyotish.Direction{
	jyotish.DirectionBullish,
	jyotish.DirectionBearish,
	jyotish.DirectionNeutral,
	jyotish.DirectionUncertain,
}

// Score 融合三方主星属性，返回波动率、方向与影响力。
func Score(segmentRuler, major, sub jyotish.Graha) (float64, jyotish.Direction, float64) {
	mt := jyotish.TraitsOf(major)
	st := jyotish.TraitsOf(sub)
	gt := jyotish.TraitsOf(segmentRuler)

	volatility := weightMajor*mt.Volatility + weightSub*st.Volatility + weightSegment*gt.Volatility

	votes := make(map[jyotish.Direction]int, 3)
	for _, d := range [...]jyotish.Direction{mt.Direction, st.Direction, gt.Direction} {
		votes[d]++
	}
	direction := directionBallot[0]
	best := -1
	for _, cand := range directionBallot {
		if votes[cand] > best {
			best = votes[cand]
			direction = cand
		}
	}

	influence := volatility
	if mt.Direction == st.Direction && st.Direction == gt.Direction {
		influence = math.Min(1.0, volatility*alignmentBoost)
	}
	return volatility, direction, influence
}
