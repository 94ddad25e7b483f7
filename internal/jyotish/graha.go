package jyotish

import (
	"fmt"
	"strings"
)

// Graha 九曜，大运与星区的主宰星。
type Graha string

const (
	Ketu    Graha = "Ketu"
	Venus   Graha = "Venus"
	Sun     Graha = "Sun"
	Moon    Graha = "Moon"
	Mars    Graha = "Mars"
	Rahu    Graha = "Rahu"
	Jupiter Graha = "Jupiter"
	Saturn  Graha = "Saturn"
	Mercury Graha = "Mercury"
)

// Direction 行情方向倾向。
type Direction string

const (
	DirectionBullish   Direction = "bullish"
	DirectionBearish   Direction = "bearish"
	DirectionNeutral   Direction = "neutral"
	DirectionUncertain Direction = "uncertain"
)

// dashaOrder Vimshottari 固定顺序，周期运算与星区主星分配都按此序。
var dashaOrder = [...]Graha{Ketu, Venus, Sun, Moon, Mars, Rahu, Jupiter, Saturn, Mercury}

// dashaYears 各主星大运年数，总和恰为 120。
var dashaYears = map[Graha]int{
	Ketu:    7,
	Venus:   20,
	Sun:     6,
	Moon:    10,
	Mars:    7,
	Rahu:    18,
	Jupiter: 16,
	Saturn:  19,
	Mercury: 17,
}

// Traits 主星的市场属性。
type Traits struct {
	Volatility float64   `json:"volatility"`
	Direction  Direction `json:"direction"`
	Style      string    `json:"style"`
}

var grahaTraits = map[Graha]Traits{
	Ketu:    {Volatility: 0.8, Direction: DirectionUncertain, Style: "sudden_changes"},
	Venus:   {Volatility: 0.3, Direction: DirectionBullish, Style: "steady_growth"},
	Sun:     {Volatility: 0.6, Direction: DirectionBullish, Style: "leadership_moves"},
	Moon:    {Volatility: 0.5, Direction: DirectionNeutral, Style: "sentiment_driven"},
	Mars:    {Volatility: 0.9, Direction: DirectionBearish, Style: "aggressive_moves"},
	Rahu:    {Volatility: 0.7, Direction: DirectionUncertain, Style: "unexpected_trends"},
	Jupiter: {Volatility: 0.2, Direction: DirectionBullish, Style: "expansion_growth"},
	Saturn:  {Volatility: 0.4, Direction: DirectionBearish, Style: "correction_consolidation"},
	Mercury: {Volatility: 0.5, Direction: DirectionNeutral, Style: "news_driven"},
}

// DashaOrder 返回大运固定顺序的副本。
func DashaOrder() []Graha {
	out := make([]Graha, len(dashaOrder))
	copy(out, dashaOrder[:])
	return out
}

// DashaYears 返回主星的大运年数，未知主星返回 0。
func DashaYears(g Graha) int {
	return dashaYears[g]
}

// TraitsOf 返回主星的市场属性，未知主星返回零值。
func TraitsOf(g Graha) Traits {
	return grahaTraits[g]
}

// ParseGraha 解析主星名称，大小写不敏感，用于校验外部配置。
func ParseGraha(s string) (Graha, error) {
	name := strings.TrimSpace(s)
	for _, g := range dashaOrder {
		if strings.EqualFold(string(g), name) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown graha %q", s)
}
