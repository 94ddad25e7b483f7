package forecast

import (
	"context"
	"fmt"
	"time"

	"muhurta/internal/ephem"
	"muhurta/internal/jyotish"
	"muhurta/internal/rules"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Generator 把时间窗口展开成逐分钟预测序列。
// 每分钟互相独立，可并行计算；结果按槽位写入，输出顺序与完成顺序无关。
type Generator struct {
	positions *ephem.Service
	epoch     time.Time
	rules     []rules.Rule
	workers   int
}

func NewGenerator(positions *ephem.Service, epoch time.Time, ruleSet []rules.Rule, workers int) *Generator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Generator{
		positions: positions,
		epoch:     epoch,
		rules:     append([]rules.Rule(nil), ruleSet...),
		workers:   workers,
	}
}

// Evaluate 计算单个时刻的预测条目。
func (g *Generator) Evaluate(ctx context.Context, at time.Time) (PredictionRecord, error) {
	longitude, err := g.positions.Position(ctx, at)
	if err != nil {
		return PredictionRecord{}, err
	}
	seg, segProgress, err := jyotish.ResolveSegment(longitude)
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("resolve segment: %w", err)
	}
	cycle, err := jyotish.ResolveDasha(at, g.epoch)
	if err != nil {
		return PredictionRecord{}, err
	}
	volatility, direction, influence := Score(seg.Ruler, cycle.Major, cycle.Sub)
	return PredictionRecord{
		Instant:         at,
		TimeLabel:       at.Format("15:04"),
		MoonLongitude:   longitude,
		Segment:         seg.Name,
		SegmentRuler:    seg.Ruler,
		SegmentProgress: segProgress,
		CycleState:      cycle,
		Volatility:      volatility,
		Direction:       direction,
		Influence:       influence,
		Events:          DetectEvents(seg, segProgress, cycle, g.rules),
	}, nil
}

// Generate 生成 [start, end] 闭区间内整分钟步进的序列。
// start 晚于 end 返回空序列；任何一分钟失败则丢弃全部结果返回错误。
func (g *Generator) Generate(ctx context.Context, start, end time.Time) ([]PredictionRecord, error) {
	if start.After(end) {
		return []PredictionRecord{}, nil
	}
	n := int(end.Sub(start)/time.Minute) + 1
	records := make([]PredictionRecord, n)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * time.Minute)
		slot := i
		eg.Go(func() error {
			rec, err := g.Evaluate(ctx, at)
			if err != nil {
				return fmt.Errorf("minute %s: %w", at.Format(time.RFC3339), err)
			}
			records[slot] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
