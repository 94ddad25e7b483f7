package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Ephemeris.validate(); err != nil {
		return err
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (e *EphemerisConfig) validate() error {
	if len(e.Sources) == 0 {
		return fmt.Errorf("ephemeris.sources requires at least one source")
	}
	activeName := strings.ToLower(strings.TrimSpace(e.ActiveSource))
	enabled := 0
	activeFound := false
	for _, src := range e.Sources {
		if src.Type != SourceTypeAnalytic && src.Type != SourceTypeRemote {
			return fmt.Errorf("ephemeris source %s has unknown type %q", src.Name, src.Type)
		}
		if !src.Enabled {
			continue
		}
		enabled++
		if src.Type == SourceTypeRemote && strings.TrimSpace(src.BaseURL) == "" {
			return fmt.Errorf("ephemeris source %s missing base_url", src.Name)
		}
		if src.TimeoutSeconds < 0 {
			return fmt.Errorf("ephemeris source %s timeout_seconds must be >= 0", src.Name)
		}
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if activeName == "" || name == activeName {
			activeFound = true
		}
	}
	if enabled == 0 {
		return fmt.Errorf("ephemeris.sources requires at least one enabled source")
	}
	if !activeFound {
		return fmt.Errorf("enabled ephemeris.active_source=%s not found", e.ActiveSource)
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if e.Workers < 1 || e.Workers > 64 {
		return fmt.Errorf("engine.workers must be in [1,64]")
	}
	if e.CacheTTLMinutes < 0 {
		return fmt.Errorf("engine.cache_ttl_minutes must be >= 0")
	}
	return nil
}

func (s *ScheduleConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if s.LeadMinutes < 1 || s.LeadMinutes > 720 {
		return fmt.Errorf("schedule.lead_minutes must be in [1,720]")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
