package forecast

// Transition 相邻分钟之间的星区切换。
type Transition struct {
	Index     int    `json:"index"`
	TimeLabel string `json:"time_str"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// SegmentTransitions 找出序列中的星区切换点，供图表竖线与 API 使用。
func SegmentTransitions(records []PredictionRecord) []Transition {
	out := make([]Transition, 0, 2)
	for i := 1; i < len(records); i++ {
		if records[i].Segment == records[i-1].Segment {
			continue
		}
		out = append(out, Transition{
			Index:     i,
			TimeLabel: records[i].TimeLabel,
			From:      records[i-1].Segment,
			To:        records[i].Segment,
		})
	}
	return out
}
