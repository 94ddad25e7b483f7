package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"muhurta/internal/logger"
	"muhurta/internal/market"
	"muhurta/internal/metrics"
	"muhurta/internal/notifier"
	"muhurta/internal/service"
)

const sessionJobTimeout = 5 * time.Minute

// SessionScheduler 在每个市场开盘前按提前量跑一次整场推演并推送摘要。
// 每个市场一个独立 cron，挂在各自时区上；市场档案热更新后整组重建。
type SessionScheduler struct {
	forecasts *service.ForecastService
	markets   *market.Registry
	sender    notifier.TextNotifier
	channel   string
	recorder  *metrics.Recorder
	lead      time.Duration

	mu      sync.Mutex
	crons   []*cron.Cron
	ctx     context.Context
	started bool
}

func NewSessionScheduler(
	forecasts *service.ForecastService,
	markets *market.Registry,
	sender notifier.TextNotifier,
	channel string,
	recorder *metrics.Recorder,
	lead time.Duration,
) *SessionScheduler {
	if lead <= 0 {
		lead = 30 * time.Minute
	}
	return &SessionScheduler{
		forecasts: forecasts,
		markets:   markets,
		sender:    sender,
		channel:   channel,
		recorder:  recorder,
		lead:      lead,
	}
}

// Start 订阅市场注册表并启动各市场的 cron。
func (s *SessionScheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.ctx = ctx
	s.started = true
	s.mu.Unlock()
	s.markets.Subscribe(func(snap market.Snapshot) {
		s.rebuild(snap)
	})
	logger.Infof("Session scheduler started, lead=%s", s.lead)
}

// Stop 停止全部 cron 并等待在跑任务结束。
func (s *SessionScheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	crons := s.crons
	s.crons = nil
	s.started = false
	s.mu.Unlock()
	for _, c := range crons {
		<-c.Stop().Done()
	}
	logger.Infof("Session scheduler stopped")
}

// rebuild 用新的市场全集重建 cron 组。
func (s *SessionScheduler) rebuild(snap market.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	for _, c := range s.crons {
		c.Stop()
	}
	s.crons = nil

	keys := make([]string, 0, len(snap.Markets))
	for key := range snap.Markets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		profile := snap.Markets[key]
		spec, err := precomputeSpec(profile, s.lead)
		if err != nil {
			logger.Warnf("Schedule %s skipped: %v", key, err)
			continue
		}
		c := cron.New(cron.WithLocation(profile.Location()))
		p := profile
		if _, err := c.AddFunc(spec, func() { s.runSession(p) }); err != nil {
			logger.Errorf("Schedule %s register failed (%s): %v", key, spec, err)
			continue
		}
		c.Start()
		s.crons = append(s.crons, c)
		logger.Infof("Scheduled %s session precompute: %q in %s", key, spec, profile.Timezone)
	}
}

// precomputeSpec 生成开盘前提前量对应的 cron 表达式。
func precomputeSpec(p market.Profile, lead time.Duration) (string, error) {
	hour, minute := p.OpenClock()
	total := hour*60 + minute - int(lead/time.Minute)
	if total < 0 {
		return "", fmt.Errorf("lead %s reaches before midnight of session open", lead)
	}
	days := p.TradingWeekdays()
	if len(days) == 0 {
		return "", fmt.Errorf("no trading weekdays")
	}
	names := make([]string, 0, len(days))
	for _, wd := range days {
		names = append(names, strings.ToUpper(wd.String()[:3]))
	}
	return fmt.Sprintf("%d %d * * %s", total%60, total/60, strings.Join(names, ",")), nil
}

// runSession 单次任务：推演当天会话并推送摘要。失败只记日志。
func (s *SessionScheduler) runSession(p market.Profile) {
	now := time.Now().In(p.Location())
	if !p.TradingDay(now) {
		logger.Debugf("Skip %s precompute: %s is not a trading day", p.Key, now.Format("2006-01-02"))
		return
	}

	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, sessionJobTimeout)
	defer cancel()

	f, err := s.forecasts.SessionForecast(ctx, p.Key, now)
	if err != nil {
		logger.Errorf("Scheduled forecast %s failed: %v", p.Key, err)
		return
	}
	text := formatForecastMessage(f).RenderMarkdown()
	logger.InfoBlock(text)
	if s.sender == nil {
		return
	}
	if err := s.sender.SendText(text); err != nil {
		s.recorder.RecordNotification(s.channel, "error")
		logger.Errorf("Push %s session summary failed: %v", p.Key, err)
		return
	}
	s.recorder.RecordNotification(s.channel, "sent")
	logger.Infof("Pushed %s session summary for %s", p.Key, f.Date)
}
