package config

import "strings"

// Config 是 Muhurta 的主配置载体。
type Config struct {
	App       AppConfig       `yaml:"app"`
	Ephemeris EphemerisConfig `yaml:"ephemeris"`
	Engine    EngineConfig    `yaml:"engine"`
	Markets   MarketsConfig   `yaml:"markets"`
	Rules     RulesConfig     `yaml:"rules"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	LogPath  string `yaml:"log_path"`
}

// EphemerisConfig 描述月球黄经的来源。可配置多个源，运行期只启用一个。
type EphemerisConfig struct {
	ActiveSource string        `yaml:"active_source"`
	Sources      []EphemSource `yaml:"sources"`
}

type EphemSource struct {
	Name           string  `yaml:"name"`
	Type           string  `yaml:"type"` // "analytic" | "remote"
	Enabled        bool    `yaml:"enabled"`
	BaseURL        string  `yaml:"base_url"`
	QueryParam     string  `yaml:"query_param"`
	ResponsePath   string  `yaml:"response_path"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	AyanamsaOffset float64 `yaml:"ayanamsa_offset"`
}

// EngineConfig 控制逐分钟推演的并发与结果缓存。
type EngineConfig struct {
	Workers         int `yaml:"workers"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

type MarketsConfig struct {
	Path string `yaml:"path"`
}

type RulesConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig 控制开盘前自动推演任务。
type ScheduleConfig struct {
	Enabled     bool `yaml:"enabled"`
	LeadMinutes int  `yaml:"lead_minutes"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BotToken       string `yaml:"bot_token"`
	ChatID         string `yaml:"chat_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type DashboardConfig struct {
	SnapshotEnabled bool   `yaml:"snapshot_enabled"`
	PageTitle       string `yaml:"page_title"`
}

const (
	SourceTypeAnalytic = "analytic"
	SourceTypeRemote   = "remote"
)

// ResolveActiveSource 返回应启用的星历源；未配置时回落到解析源。
func (e EphemerisConfig) ResolveActiveSource() EphemSource {
	if len(e.Sources) == 0 {
		return EphemSource{
			Name:    defaultEphemName,
			Type:    SourceTypeAnalytic,
			Enabled: true,
		}
	}
	active := strings.ToLower(strings.TrimSpace(e.ActiveSource))
	var fallback EphemSource
	for _, src := range e.Sources {
		if fallback.Name == "" {
			fallback = src
		}
		if !src.Enabled {
			continue
		}
		if active == "" || strings.ToLower(src.Name) == active {
			return src
		}
	}
	return fallback
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
