package forecast

import (
	"fmt"

	"muhurta/internal/jyotish"
	"muhurta/internal/rules"
)

// 事件触发阈值，均为严格大于。
const (
	segmentEndThreshold = 0.95
	majorEndThreshold   = 0.98
	subEndThreshold     = 0.98
)

// DetectEvents 产出当前分钟的事件标签。
// 顺序固定：星区临界、大运临界、小运临界、组合规则（按规则声明顺序）。
func DetectEvents(segment jyotish.Segment, segmentProgress float64, cycle jyotish.CycleState, ruleSet []rules.Rule) []string {
	events := make([]string, 0, 2)
	if segmentProgress > segmentEndThreshold {
		events = append(events, fmt.Sprintf("Approaching %s end", segment.Name))
	}
	if cycle.MajorProgress > majorEndThreshold {
		events = append(events, "Mahadasha change imminent")
	}
	if cycle.SubProgress > subEndThreshold {
		events = append(events, "Bhukti change imminent")
	}
	for _, rule := range ruleSet {
		if rule.Matches(segment.Ruler, cycle.Major, cycle.Sub) {
			events = append(events, rule.Label)
		}
	}
	return events
}
