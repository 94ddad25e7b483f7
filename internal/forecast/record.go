package forecast

import (
	"time"

	"muhurta/internal/jyotish"
)

// PredictionRecord 单个整分钟的预测条目。
// CycleState 内嵌后大运/小运字段直接展平进 JSON 输出。
type PredictionRecord struct {
	Instant         time.Time     `json:"timestamp"`
	TimeLabel       string        `json:"time_str"`
	MoonLongitude   float64       `json:"moon_longitude"`
	Segment         string        `json:"nakshatra"`
	SegmentRuler    jyotish.Graha `json:"nakshatra_lord"`
	SegmentProgress float64       `json:"nakshatra_progress"`

	jyotish.CycleState

	Volatility float64           `json:"predicted_volatility"`
	Direction  jyotish.Direction `json:"predicted_direction"`
	Influence  float64           `json:"influence_score"`
	Events     []string          `json:"key_events"`
}
