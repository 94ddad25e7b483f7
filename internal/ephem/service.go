package ephem

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Service 封装当前星历源，输出统一归一化到 [0,360) 的黄经。
// ayanamsa 为可配置的回归/恒星黄道偏移，默认 0 表示直接使用源值。
type Service struct {
	provider Provider
	ayanamsa float64
}

func NewService(provider Provider, ayanamsaDeg float64) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("ephemeris provider required")
	}
	return &Service{provider: provider, ayanamsa: ayanamsaDeg}, nil
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Position 返回 t 时刻的月亮黄经。源失败时带上源名与时刻原样上抛，
// 调用方据此中止整段生成。
func (s *Service) Position(ctx context.Context, t time.Time) (float64, error) {
	raw, err := s.provider.MoonLongitude(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("ephemeris %s at %s: %w", s.provider.Name(), t.Format(time.RFC3339), err)
	}
	return NormalizeDegrees(raw - s.ayanamsa), nil
}

// NormalizeDegrees 把任意角度折算到 [0,360)。
// 负零点附近的浮点舍入可能产出恰为 360 的值，由星区解析端回落处理。
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}
