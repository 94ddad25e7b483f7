package ephem

import (
	"context"
	"time"
)

// Provider 给出某一时刻月亮的地心黄经（度）。
// 返回值允许超出 [0,360)，由 Service 统一归一化。
type Provider interface {
	Name() string
	MoonLongitude(ctx context.Context, t time.Time) (float64, error)
}
