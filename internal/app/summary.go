package app

import (
	"fmt"
	"strings"
)

type StartupSummary struct {
	Markets   MarketsSummary
	Ephemeris EphemerisSummary
	Rules     RulesSummary
	HTTPAddr  string
	Schedule  ScheduleSummary
}

type MarketsSummary struct {
	Keys    []string
	Default string
}

type EphemerisSummary struct {
	Source   string
	Type     string
	Ayanamsa float64
}

type RulesSummary struct {
	Version int64
	Count   int
}

type ScheduleSummary struct {
	Enabled     bool
	LeadMinutes int
	Notify      bool
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[市场档案 (MARKETS)]")
	fmt.Printf("  已加载市场: %s\n", formatList(s.Markets.Keys))
	fmt.Printf("  默认市场: %s\n", s.Markets.Default)
	fmt.Println()

	fmt.Println("[星历源 (EPHEMERIS)]")
	fmt.Printf("  来源: %s (%s)\n", s.Ephemeris.Source, s.Ephemeris.Type)
	fmt.Printf("  黄道偏移: %.4f°\n", s.Ephemeris.Ayanamsa)
	fmt.Println()

	fmt.Println("[组合规则 (RULES)]")
	fmt.Printf("  版本: v%d，共 %d 条\n", s.Rules.Version, s.Rules.Count)
	fmt.Println()

	fmt.Println("[服务 (SERVICES)]")
	fmt.Printf("  HTTP 监听: %s\n", s.HTTPAddr)
	if s.Schedule.Enabled {
		notify := "关闭"
		if s.Schedule.Notify {
			notify = "开启"
		}
		fmt.Printf("  场次调度: 开盘前 %d 分钟，通知推送%s\n", s.Schedule.LeadMinutes, notify)
	} else {
		fmt.Println("  场次调度: 未启用")
	}
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
