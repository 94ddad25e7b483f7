package forecast

import (
	"fmt"
	"sort"
	"strings"

	"muhurta/internal/jyotish"
)

// 聚合阈值：高波动分钟与强方向影响都取 0.7（严格大于）。
const (
	highVolatilityLevel  = 0.7
	strongInfluenceLevel = 0.7
)

// 风险分级与对应建议。
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"
)

const (
	riskAdviceHigh   = "Reduce position sizing"
	riskAdviceMedium = "Normal caution advised"
	riskAdviceLow    = "Favorable for trading"
)

// NotableWindow 会话内影响显著的时段。
type NotableWindow struct {
	Type           string   `json:"type"`
	Times          []string `json:"times"`
	Intensity      string   `json:"intensity"`
	Recommendation string   `json:"recommendation"`
}

// RulerShare 主导主星及其在三方计票中的占比。
type RulerShare struct {
	Graha      jyotish.Graha `json:"graha"`
	Count      int           `json:"count"`
	Percentage float64       `json:"percentage"`
}

// RiskAssessment 按高波动分钟占比分级。
type RiskAssessment struct {
	Level        string  `json:"level"`
	Advice       string  `json:"advice"`
	HighVolRatio float64 `json:"high_vol_ratio"`
}

// SessionSummary 整场会话的聚合结论。
type SessionSummary struct {
	Records           int               `json:"records"`
	Direction         jyotish.Direction `json:"overall_direction"`
	Confidence        float64           `json:"confidence"`
	AverageVolatility float64           `json:"avg_volatility"`
	Character         string            `json:"session_character"`
	NotableWindows    []NotableWindow   `json:"key_periods"`
	DominantRulers    []RulerShare      `json:"dominant_influences"`
	Risk              RiskAssessment    `json:"risk"`
}

// Summarize 聚合一段预测序列。空序列返回 "no data" 的零值摘要。
func Summarize(records []PredictionRecord) SessionSummary {
	if len(records) == 0 {
		return SessionSummary{Character: "no data"}
	}
	total := len(records)

	var (
		highVolTimes  []string
		bullishTimes  []string
		bearishTimes  []string
		volSum        float64
		directionVote = make(map[jyotish.Direction]int, 4)
		rulerCount    = make(map[jyotish.Graha]int, 9)
		rulerFirst    = make(map[jyotish.Graha]int, 9)
	)
	seen := 0
	for _, rec := range records {
		volSum += rec.Volatility
		directionVote[rec.Direction]++
		if rec.Volatility > highVolatilityLevel {
			highVolTimes = append(highVolTimes, rec.TimeLabel)
		}
		if rec.Influence > strongInfluenceLevel {
			switch rec.Direction {
			case jyotish.DirectionBullish:
				bullishTimes = append(bullishTimes, rec.TimeLabel)
			case jyotish.DirectionBearish:
				bearishTimes = append(bearishTimes, rec.TimeLabel)
			}
		}
		for _, g := range [...]jyotish.Graha{rec.Major, rec.Sub, rec.SegmentRuler} {
			if _, ok := rulerFirst[g]; !ok {
				rulerFirst[g] = seen
			}
			seen++
			rulerCount[g]++
		}
	}

	direction := directionBallot[0]
	best := -1
	for _, cand := range directionBallot {
		if directionVote[cand] > best {
			best = directionVote[cand]
			direction = cand
		}
	}
	confidence := float64(best) / float64(total)
	avgVol := volSum / float64(total)

	summary := SessionSummary{
		Records:           total,
		Direction:         direction,
		Confidence:        confidence,
		AverageVolatility: avgVol,
		Character:         sessionCharacter(avgVol, direction),
		NotableWindows:    notableWindows(highVolTimes, bullishTimes, bearishTimes),
		DominantRulers:    dominantRulers(rulerCount, rulerFirst, total),
		Risk:              assessRisk(len(highVolTimes), total),
	}
	return summary
}

func sessionCharacter(avgVol float64, direction jyotish.Direction) string {
	switch {
	case avgVol > highVolatilityLevel:
		return "Highly Volatile"
	case avgVol > 0.5:
		return fmt.Sprintf("Moderately Volatile %s", titleCase(direction))
	default:
		return fmt.Sprintf("Stable %s", titleCase(direction))
	}
}

func notableWindows(highVol, bullish, bearish []string) []NotableWindow {
	windows := make([]NotableWindow, 0, 3)
	if len(highVol) > 0 {
		windows = append(windows, NotableWindow{
			Type:           "High Volatility",
			Times:          firstN(highVol, 3),
			Intensity:      "Very High",
			Recommendation: "Caution - Tight stop losses",
		})
	}
	if len(bullish) > 0 {
		windows = append(windows, NotableWindow{
			Type:           "Strong Bullish Bias",
			Times:          firstN(bullish, 2),
			Intensity:      "High",
			Recommendation: "Good for long entries",
		})
	}
	if len(bearish) > 0 {
		windows = append(windows, NotableWindow{
			Type:           "Strong Bearish Bias",
			Times:          firstN(bearish, 2),
			Intensity:      "High",
			Recommendation: "Consider short positions",
		})
	}
	return windows
}

func dominantRulers(count map[jyotish.Graha]int, first map[jyotish.Graha]int, total int) []RulerShare {
	shares := make([]RulerShare, 0, len(count))
	for g, c := range count {
		shares = append(shares, RulerShare{
			Graha:      g,
			Count:      c,
			Percentage: float64(c) / float64(3*total) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return first[shares[i].Graha] < first[shares[j].Graha]
	})
	if len(shares) > 3 {
		shares = shares[:3]
	}
	return shares
}

func assessRisk(highVolCount, total int) RiskAssessment {
	ratio := float64(highVolCount) / float64(total)
	switch {
	case ratio > 0.3:
		return RiskAssessment{Level: RiskHigh, Advice: riskAdviceHigh, HighVolRatio: ratio}
	case ratio > 0.15:
		return RiskAssessment{Level: RiskMedium, Advice: riskAdviceMedium, HighVolRatio: ratio}
	default:
		return RiskAssessment{Level: RiskLow, Advice: riskAdviceLow, HighVolRatio: ratio}
	}
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return append([]string(nil), items...)
}

func titleCase(d jyotish.Direction) string {
	s := string(d)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
