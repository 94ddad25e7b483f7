package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"muhurta/internal/ephem"
	"muhurta/internal/forecast"
	"muhurta/internal/logger"
	"muhurta/internal/market"
	"muhurta/internal/metrics"
	"muhurta/internal/rules"
)

// ErrUnknownMarket 请求了未注册的市场。
var ErrUnknownMarket = errors.New("unknown market")

// Forecast 一次完整会话推演的结果，是对外 API 的顶层载体。
type Forecast struct {
	RunID        string                      `json:"run_id"`
	Market       string                      `json:"market"`
	MarketName   string                      `json:"market_name"`
	Date         string                      `json:"date"`
	Records      []forecast.PredictionRecord `json:"records"`
	Summary      forecast.SessionSummary     `json:"summary"`
	Advice       forecast.TradingAdvice      `json:"advice"`
	Transitions  []forecast.Transition       `json:"transitions"`
	RulesVersion int64                       `json:"rules_version"`
	GeneratedAt  time.Time                   `json:"generated_at"`
}

const (
	criticalInfluence    = 0.7
	defaultCriticalLimit = 8
)

// CriticalRecords 返回影响力超过告警阈值的分钟条目，最多 limit 条。
func (f *Forecast) CriticalRecords(limit int) []forecast.PredictionRecord {
	if f == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultCriticalLimit
	}
	out := make([]forecast.PredictionRecord, 0, limit)
	for _, rec := range f.Records {
		if rec.Influence <= criticalInfluence {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out
}

type cacheEntry struct {
	forecast *Forecast
	storedAt time.Time
}

// ForecastService 组装星历、市场与规则，产出整场会话预测。
// 同一 market|date|rulesVersion 的结果在 TTL 内复用；
// 规则或市场热更新后整体失效。
type ForecastService struct {
	positions *ephem.Service
	markets   *market.Registry
	rules     *rules.Registry
	recorder  *metrics.Recorder
	workers   int
	ttl       time.Duration

	mu        sync.RWMutex
	cache     map[string]cacheEntry
	refreshMu sync.Mutex
}

func NewForecastService(
	positions *ephem.Service,
	markets *market.Registry,
	ruleRegistry *rules.Registry,
	recorder *metrics.Recorder,
	workers int,
	ttl time.Duration,
) *ForecastService {
	s := &ForecastService{
		positions: positions,
		markets:   markets,
		rules:     ruleRegistry,
		recorder:  recorder,
		workers:   workers,
		ttl:       ttl,
		cache:     make(map[string]cacheEntry),
	}
	if ruleRegistry != nil {
		ruleRegistry.Subscribe(func(rules.Snapshot) { s.invalidate() })
	}
	if markets != nil {
		markets.Subscribe(func(market.Snapshot) { s.invalidate() })
	}
	return s
}

// SessionForecast 计算 day 所在交易日的逐分钟预测。
// marketKey 为空使用默认市场；day 按市场时区取日历日。
func (s *ForecastService) SessionForecast(ctx context.Context, marketKey string, day time.Time) (*Forecast, error) {
	profile, ok := s.markets.Profile(marketKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarket, marketKey)
	}
	snap := s.rules.Snapshot()
	date := day.In(profile.Location()).Format("2006-01-02")
	key := fmt.Sprintf("%s|%s|%d", profile.Key, date, snap.Version)

	if f, ok := s.lookup(key); ok {
		s.recorder.RecordForecast(profile.Key, metrics.SourceCache)
		return f, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if f, ok := s.lookup(key); ok {
		s.recorder.RecordForecast(profile.Key, metrics.SourceCache)
		return f, nil
	}

	f, err := s.compute(ctx, profile, snap, date)
	if err != nil {
		return nil, err
	}
	s.store(key, f)
	s.recorder.RecordForecast(profile.Key, metrics.SourceComputed)
	return f, nil
}

func (s *ForecastService) compute(ctx context.Context, profile market.Profile, snap rules.Snapshot, date string) (*Forecast, error) {
	day, err := time.ParseInLocation("2006-01-02", date, profile.Location())
	if err != nil {
		return nil, fmt.Errorf("parse session date: %w", err)
	}
	start, end := profile.SessionWindow(day)

	began := time.Now()
	gen := forecast.NewGenerator(s.positions, profile.EpochTime(), snap.Rules, s.workers)
	records, err := gen.Generate(ctx, start, end)
	if err != nil {
		// 生成链路里只有星历源依赖外部，失败计入当前源。
		s.recorder.RecordEphemerisError(s.positions.ProviderName())
		return nil, fmt.Errorf("session %s %s: %w", profile.Key, date, err)
	}
	s.recorder.ObserveForecastDuration(profile.Key, time.Since(began).Seconds())

	summary := forecast.Summarize(records)
	f := &Forecast{
		RunID:        uuid.NewString(),
		Market:       profile.Key,
		MarketName:   profile.DisplayName,
		Date:         date,
		Records:      records,
		Summary:      summary,
		Advice:       forecast.Advise(summary),
		Transitions:  forecast.SegmentTransitions(records),
		RulesVersion: snap.Version,
		GeneratedAt:  time.Now(),
	}
	logger.Infof("Session forecast %s %s: %d minutes, %d transitions, risk=%s",
		profile.Key, date, len(records), len(f.Transitions), summary.Risk.Level)
	return f, nil
}

func (s *ForecastService) lookup(key string) (*Forecast, bool) {
	if s.ttl <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || time.Since(entry.storedAt) > s.ttl {
		return nil, false
	}
	return entry.forecast, true
}

func (s *ForecastService) store(key string, f *Forecast) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.cache[key] = cacheEntry{forecast: f, storedAt: time.Now()}
	s.mu.Unlock()
}

func (s *ForecastService) invalidate() {
	s.mu.Lock()
	n := len(s.cache)
	s.cache = make(map[string]cacheEntry)
	s.mu.Unlock()
	if n > 0 {
		logger.Infof("Forecast cache invalidated (%d entries)", n)
	}
}
