package jyotish

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBeforeEpoch 时间点早于周期纪元。
var ErrBeforeEpoch = errors.New("instant before cycle epoch")

// daysPerYear 大运年折算天数。
const daysPerYear = 365.25

// subPeriodsPerMajor 每个大运内的小运数量。
const subPeriodsPerMajor = 9

// CycleState 某一时刻的大运（mahadasha）与小运（bhukti）状态。
type CycleState struct {
	Major         Graha   `json:"mahadasha_lord"`
	Sub           Graha   `json:"bhukti_lord"`
	MajorProgress float64 `json:"mahadasha_progress"`
	SubProgress   float64 `json:"bhukti_progress"`
}

// CycleLengthDays 完整 120 年周期折算的天数。
func CycleLengthDays() float64 {
	total := 0.0
	for _, g := range dashaOrder {
		total += float64(dashaYears[g]) * daysPerYear
	}
	return total
}

// ResolveDasha 计算 instant 相对 epoch 的周期状态。
// 经过天数按整天截断；小运固定从 Ketu 起按大运顺序均分九段，
// 不按传统把起点旋转到当前大运主星。
func ResolveDasha(instant, epoch time.Time) (CycleState, error) {
	if instant.Before(epoch) {
		return CycleState{}, fmt.Errorf("%w: %s is before %s", ErrBeforeEpoch,
			instant.Format(time.RFC3339), epoch.Format(time.RFC3339))
	}
	elapsedDays := math.Floor(instant.Sub(epoch).Hours() / 24)
	phase := math.Mod(elapsedDays, CycleLengthDays())

	acc := 0.0
	for _, g := range dashaOrder {
		span := float64(dashaYears[g]) * daysPerYear
		if phase < acc+span {
			inMajor := phase - acc
			subSpan := span / subPeriodsPerMajor
			subIdx := int(inMajor / subSpan)
			if subIdx > len(dashaOrder)-1 {
				subIdx = len(dashaOrder) - 1
			}
			return CycleState{
				Major:         g,
				Sub:           dashaOrder[subIdx],
				MajorProgress: inMajor / span,
				SubProgress:   math.Mod(inMajor, subSpan) / subSpan,
			}, nil
		}
		acc += span
	}
	// phase 恒小于周期总长，循环内必然返回。
	return CycleState{}, fmt.Errorf("phase %.2f outside cycle length %.2f", phase, CycleLengthDays())
}
