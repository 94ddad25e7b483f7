package app

import (
	"context"
	"fmt"
	"time"

	mhcfg "muhurta/internal/config"
	"muhurta/internal/ephem"
	"muhurta/internal/logger"
	"muhurta/internal/market"
	"muhurta/internal/metrics"
	"muhurta/internal/notifier"
	"muhurta/internal/rules"
	"muhurta/internal/scheduler"
	"muhurta/internal/service"
	apihttp "muhurta/internal/transport/http/api"
	"muhurta/internal/visual"
)

// AppBuilder 按步骤装配应用依赖，构造函数字段可被测试替换。
type AppBuilder struct {
	cfg *mhcfg.Config

	marketsFn   func(string) (*market.Registry, error)
	rulesFn     func(string) (*rules.Registry, error)
	ephemerisFn func(mhcfg.EphemerisConfig) (*ephem.Service, error)
	notifierFn  func(mhcfg.NotifyConfig) *notifier.Telegram
	httpFn      func(apihttp.ServerConfig) (*apihttp.Server, error)

	recorderOverride *metrics.Recorder
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *mhcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		marketsFn:   market.NewRegistry,
		rulesFn:     rules.NewRegistry,
		ephemerisFn: buildEphemerisService,
		notifierFn:  newTelegram,
		httpFn:      apihttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithEphemerisFn 替换星历服务的构造方式。
func WithEphemerisFn(fn func(mhcfg.EphemerisConfig) (*ephem.Service, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.ephemerisFn = fn
		}
	}
}

// WithNotifierFn 替换通知客户端的构造方式。
func WithNotifierFn(fn func(mhcfg.NotifyConfig) *notifier.Telegram) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.notifierFn = fn
		}
	}
}

// WithRecorder 注入自定义指标采集器，测试里用独立注册表避免重复注册。
func WithRecorder(r *metrics.Recorder) AppBuilderOption {
	return func(b *AppBuilder) {
		b.recorderOverride = r
	}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	markets, err := b.marketsFn(cfg.Markets.Path)
	if err != nil {
		return nil, fmt.Errorf("加载市场档案失败: %w", err)
	}
	keys := markets.Keys()
	logger.Infof("✓ 已加载 %d 个市场: %v", len(keys), keys)

	ruleReg, err := b.rulesFn(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("加载组合规则失败: %w", err)
	}
	ruleSnap := ruleReg.Snapshot()
	logger.Infof("✓ 规则集就绪 v%d，共 %d 条", ruleSnap.Version, len(ruleSnap.Rules))

	positions, err := b.ephemerisFn(cfg.Ephemeris)
	if err != nil {
		return nil, fmt.Errorf("初始化星历源失败: %w", err)
	}
	logger.Infof("✓ 星历源: %s", positions.ProviderName())

	recorder := b.recorderOverride
	if recorder == nil {
		recorder = metrics.New(nil)
	}

	ttl := time.Duration(cfg.Engine.CacheTTLMinutes) * time.Minute
	forecasts := service.NewForecastService(positions, markets, ruleReg, recorder, cfg.Engine.Workers, ttl)

	tgClient := b.notifierFn(cfg.Notify)
	var textNotifier notifier.TextNotifier
	if tgClient != nil {
		textNotifier = tgClient
		logger.Infof("✓ Telegram 通知已启用")
	}

	var sched *scheduler.SessionScheduler
	if cfg.Schedule.Enabled {
		lead := time.Duration(cfg.Schedule.LeadMinutes) * time.Minute
		sched = scheduler.NewSessionScheduler(forecasts, markets, textNotifier, "telegram", recorder, lead)
		logger.Infof("✓ 场次调度已启用，开盘前 %d 分钟生成预报", cfg.Schedule.LeadMinutes)
	}

	if cfg.Dashboard.SnapshotEnabled {
		if err := visual.EnsureHeadlessAvailable(ctx); err != nil {
			logger.Warnf("无头浏览器不可用，快照接口将在调用时报错: %v", err)
		}
	}

	httpServer, err := b.httpFn(apihttp.ServerConfig{
		Addr:            cfg.App.HTTPAddr,
		Forecasts:       forecasts,
		Markets:         markets,
		Rules:           ruleReg,
		PageTitle:       cfg.Dashboard.PageTitle,
		SnapshotEnabled: cfg.Dashboard.SnapshotEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}
	logger.Infof("✓ HTTP 接口监听 %s", httpServer.Addr())

	active := cfg.Ephemeris.ResolveActiveSource()
	summary := &StartupSummary{
		Markets: MarketsSummary{
			Keys:    keys,
			Default: markets.Default().Key,
		},
		Ephemeris: EphemerisSummary{
			Source:   positions.ProviderName(),
			Type:     active.Type,
			Ayanamsa: active.AyanamsaOffset,
		},
		Rules: RulesSummary{
			Version: ruleSnap.Version,
			Count:   len(ruleSnap.Rules),
		},
		HTTPAddr: httpServer.Addr(),
		Schedule: ScheduleSummary{
			Enabled:     cfg.Schedule.Enabled,
			LeadMinutes: cfg.Schedule.LeadMinutes,
			Notify:      textNotifier != nil,
		},
	}

	return &App{
		cfg:       cfg,
		http:      httpServer,
		scheduler: sched,
		Summary:   summary,
	}, nil
}

// buildEphemerisService 根据激活的星历源配置选择本地解析或远端 HTTP 供应商。
func buildEphemerisService(cfg mhcfg.EphemerisConfig) (*ephem.Service, error) {
	src := cfg.ResolveActiveSource()
	switch src.Type {
	case mhcfg.SourceTypeRemote:
		provider, err := ephem.NewRemoteProvider(ephem.RemoteOptions{
			Name:         src.Name,
			BaseURL:      src.BaseURL,
			QueryParam:   src.QueryParam,
			ResponsePath: src.ResponsePath,
			Timeout:      time.Duration(src.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return ephem.NewService(provider, src.AyanamsaOffset)
	default:
		return ephem.NewService(ephem.NewAnalyticProvider(), src.AyanamsaOffset)
	}
}

func newTelegram(cfg mhcfg.NotifyConfig) *notifier.Telegram {
	if !cfg.Telegram.Enabled {
		return nil
	}
	timeout := time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, timeout, cfg.Telegram.MaxRetries)
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *mhcfg.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
