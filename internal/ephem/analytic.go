package ephem

import (
	"context"
	"math"
	"time"
)

// AnalyticProvider 内置的月球黄经级数（Meeus 截断），无外部依赖。
// 截断误差在百分之几度量级，远小于 13.33 度的星区跨度。
type AnalyticProvider struct{}

func NewAnalyticProvider() *AnalyticProvider {
	return &AnalyticProvider{}
}

func (p *AnalyticProvider) Name() string { return "analytic" }

// lunarTerm 周期项：系数单位 1e-6 度，倍率依次作用于 D、M、M'、F。
type lunarTerm struct {
	d, m, mp, f int
	coeff       float64
}

var lunarLongitudeTerms = []lunarTerm{
	{0, 0, 1, 0, 6288774},
	{2, 0, -1, 0, 1274027},
	{2, 0, 0, 0, 658314},
	{0, 0, 2, 0, 213618},
	{0, 1, 0, 0, -185116},
	{0, 0, 0, 2, -114332},
	{2, 0, -2, 0, 58793},
	{2, -1, -1, 0, 57066},
	{2, 0, 1, 0, 53322},
	{2, -1, 0, 0, 45758},
	{0, 1, -1, 0, -40923},
	{1, 0, 0, 0, -34720},
	{0, 1, 1, 0, -30383},
	{2, 0, 0, -2, 15327},
	{0, 0, 1, 2, -12528},
	{0, 0, 1, -2, 10980},
	{4, 0, -1, 0, 10675},
	{0, 0, 3, 0, 10034},
	{4, 0, -2, 0, 8548},
	{2, 1, -1, 0, -7888},
	{2, 1, 0, 0, -6766},
	{1, 0, -1, 0, -5163},
	{1, 1, 0, 0, 4987},
	{2, -1, 1, 0, 4036},
}

// MoonLongitude 计算 t 时刻的地心黄经，纯计算不返回错误。
func (p *AnalyticProvider) MoonLongitude(_ context.Context, t time.Time) (float64, error) {
	T := (julianDay(t.UTC()) - 2451545.0) / 36525.0

	// 平黄经、平距角、太阳/月亮平近点角、黄纬参数。
	lp := poly(T, 218.3164477, 481267.88123421, -0.0015786, 1.0/538841.0, -1.0/65194000.0)
	d := poly(T, 297.8501921, 445267.1114034, -0.0018819, 1.0/545868.0, -1.0/113065000.0)
	m := poly(T, 357.5291092, 35999.0502909, -0.0001536, 1.0/24490000.0, 0)
	mp := poly(T, 134.9633964, 477198.8675055, 0.0087414, 1.0/69699.0, -1.0/14712000.0)
	f := poly(T, 93.2720950, 483202.0175233, -0.0036539, -1.0/3526000.0, 1.0/863310000.0)

	// 地球轨道偏心率修正，作用于含 M 的项。
	e := 1.0 - 0.002516*T - 0.0000074*T*T

	sum := 0.0
	for _, term := range lunarLongitudeTerms {
		arg := float64(term.d)*d + float64(term.m)*m + float64(term.mp)*mp + float64(term.f)*f
		coeff := term.coeff
		switch term.m {
		case 1, -1:
			coeff *= e
		case 2, -2:
			coeff *= e * e
		}
		sum += coeff * math.Sin(rad(arg))
	}
	a1 := 119.75 + 131.849*T
	a2 := 53.09 + 479264.290*T
	sum += 3958*math.Sin(rad(a1)) + 1962*math.Sin(rad(lp-f)) + 318*math.Sin(rad(a2))

	return lp + sum/1e6, nil
}

func julianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/86400000.0 + 2440587.5
}

func poly(t, c0, c1, c2, c3, c4 float64) float64 {
	return c0 + t*(c1+t*(c2+t*(c3+t*c4)))
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
