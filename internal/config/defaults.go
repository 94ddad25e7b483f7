package config

import (
	"fmt"
	"strings"
)

// 默认值常量
const (
	defaultAppEnv             = "dev"
	defaultAppLogLevel        = "info"
	defaultAppHTTPAddr        = ":8077"
	defaultAppLogPath         = "/data/logs/muhurta.log"
	defaultEphemName          = "meeus"
	defaultEphemTimeout       = 10
	defaultEngineWorkers      = 8
	defaultEngineCacheTTL     = 30
	defaultMarketsPath        = "configs/markets.yaml"
	defaultRulesPath          = "configs/rules.yaml"
	defaultScheduleLead       = 30
	defaultTelegramTimeout    = 10
	defaultTelegramRetries    = 3
	defaultDashboardPageTitle = "Muhurta Session Dashboard"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Ephemeris.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Markets.applyDefaults(keys)
	c.Rules.applyDefaults(keys)
	c.Schedule.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.Dashboard.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (e *EphemerisConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	if len(e.Sources) == 0 {
		e.Sources = []EphemSource{{
			Name:    defaultEphemName,
			Type:    SourceTypeAnalytic,
			Enabled: true,
		}}
	}
	for i := range e.Sources {
		src := &e.Sources[i]
		if strings.TrimSpace(src.Name) == "" {
			if i == 0 {
				src.Name = defaultEphemName
			} else {
				src.Name = fmt.Sprintf("source_%d", i)
			}
		}
		if strings.TrimSpace(src.Type) == "" {
			src.Type = SourceTypeAnalytic
		}
		src.Type = strings.ToLower(strings.TrimSpace(src.Type))
		if src.Type == SourceTypeRemote && src.TimeoutSeconds <= 0 {
			src.TimeoutSeconds = defaultEphemTimeout
		}
	}
	if strings.TrimSpace(e.ActiveSource) == "" {
		e.ActiveSource = firstEnabledSource(e.Sources)
	}
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "engine.workers",
			need:  func() bool { return e.Workers <= 0 },
			apply: func() { e.Workers = defaultEngineWorkers },
		},
		fieldDefault{
			key:   "engine.cache_ttl_minutes",
			need:  func() bool { return e.CacheTTLMinutes <= 0 },
			apply: func() { e.CacheTTLMinutes = defaultEngineCacheTTL },
		},
	)
}

func (m *MarketsConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("markets.path", &m.Path, defaultMarketsPath),
	)
}

func (r *RulesConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("rules.path", &r.Path, defaultRulesPath),
	)
}

func (s *ScheduleConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("schedule.enabled", &s.Enabled, true),
		fieldDefault{
			key:   "schedule.lead_minutes",
			need:  func() bool { return s.LeadMinutes <= 0 },
			apply: func() { s.LeadMinutes = defaultScheduleLead },
		},
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "notify.telegram.timeout_seconds",
			need:  func() bool { return n.Telegram.TimeoutSeconds <= 0 },
			apply: func() { n.Telegram.TimeoutSeconds = defaultTelegramTimeout },
		},
		fieldDefault{
			key:   "notify.telegram.max_retries",
			need:  func() bool { return n.Telegram.MaxRetries <= 0 },
			apply: func() { n.Telegram.MaxRetries = defaultTelegramRetries },
		},
	)
}

func (d *DashboardConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("dashboard.page_title", &d.PageTitle, defaultDashboardPageTitle),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func firstEnabledSource(sources []EphemSource) string {
	for _, src := range sources {
		name := strings.TrimSpace(src.Name)
		if src.Enabled && name != "" {
			return name
		}
	}
	if len(sources) > 0 {
		if name := strings.TrimSpace(sources[0].Name); name != "" {
			return name
		}
	}
	return defaultEphemName
}
