package market

import (
	"fmt"
	"strings"
	"time"
)

// Profile 描述一个交易市场：时区、盘中时段与周期纪元。
// 纪元与开收盘都是市场本地墙钟时间。
type Profile struct {
	Key         string   `mapstructure:"-"`
	DisplayName string   `mapstructure:"display_name"`
	Timezone    string   `mapstructure:"timezone"`
	Open        string   `mapstructure:"open"`
	Close       string   `mapstructure:"close"`
	Epoch       string   `mapstructure:"epoch"`
	Weekdays    []string `mapstructure:"weekdays"`
	Default     bool     `mapstructure:"default"`

	// 归一化后的字段，加载时解析完毕避免运行期重复处理。
	loc       *time.Location
	openMin   int
	closeMin  int
	epochTime time.Time
	weekdays  map[time.Weekday]bool
}

const (
	wallClockLayout = "15:04"
	epochLayout     = "2006-01-02 15:04"
)

// normalizeProfile 解析并校验单个市场定义。
func normalizeProfile(key string, p Profile) (Profile, error) {
	p.Key = strings.ToLower(strings.TrimSpace(key))
	if p.Key == "" {
		return Profile{}, fmt.Errorf("market key required")
	}
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		p.DisplayName = strings.ToUpper(p.Key)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(p.Timezone))
	if err != nil {
		return Profile{}, fmt.Errorf("market %s timezone: %w", p.Key, err)
	}
	p.loc = loc

	p.openMin, err = parseWallClock(p.Open)
	if err != nil {
		return Profile{}, fmt.Errorf("market %s open: %w", p.Key, err)
	}
	p.closeMin, err = parseWallClock(p.Close)
	if err != nil {
		return Profile{}, fmt.Errorf("market %s close: %w", p.Key, err)
	}
	if p.openMin >= p.closeMin {
		return Profile{}, fmt.Errorf("market %s session open %s must precede close %s", p.Key, p.Open, p.Close)
	}

	p.epochTime, err = time.ParseInLocation(epochLayout, strings.TrimSpace(p.Epoch), loc)
	if err != nil {
		return Profile{}, fmt.Errorf("market %s epoch: %w", p.Key, err)
	}

	if len(p.Weekdays) == 0 {
		return Profile{}, fmt.Errorf("market %s requires trading weekdays", p.Key)
	}
	p.weekdays = make(map[time.Weekday]bool, len(p.Weekdays))
	for _, raw := range p.Weekdays {
		wd, err := parseWeekday(raw)
		if err != nil {
			return Profile{}, fmt.Errorf("market %s: %w", p.Key, err)
		}
		p.weekdays[wd] = true
	}
	return p, nil
}

// Location 市场时区。
func (p Profile) Location() *time.Location {
	return p.loc
}

// EpochTime 周期纪元对应的市场本地时刻。
func (p Profile) EpochTime() time.Time {
	return p.epochTime
}

// SessionWindow 返回 day 所在日历日的开收盘时刻（市场时区）。
func (p Profile) SessionWindow(day time.Time) (time.Time, time.Time) {
	y, m, d := day.In(p.loc).Date()
	start := time.Date(y, m, d, p.openMin/60, p.openMin%60, 0, 0, p.loc)
	end := time.Date(y, m, d, p.closeMin/60, p.closeMin%60, 0, 0, p.loc)
	return start, end
}

// OpenClock 返回开盘的时分，供调度器拼 cron 表达式。
func (p Profile) OpenClock() (hour, minute int) {
	return p.openMin / 60, p.openMin % 60
}

// TradingDay 判断 day（按市场时区）是否为交易日。
func (p Profile) TradingDay(day time.Time) bool {
	return p.weekdays[day.In(p.loc).Weekday()]
}

// TradingWeekdays 返回交易日集合的副本。
func (p Profile) TradingWeekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(p.weekdays))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if p.weekdays[wd] {
			out = append(out, wd)
		}
	}
	return out
}

func parseWallClock(s string) (int, error) {
	t, err := time.Parse(wallClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expect HH:MM: %w", err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		if wd, ok := weekdayNames[name[:3]]; ok {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
