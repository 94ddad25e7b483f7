package market

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"muhurta/internal/logger"
)

// DefaultKey 内置市场，注册表始终携带它，配置文件可覆盖其字段。
const DefaultKey = "nse"

// fileConfig 市场配置文件的顶层结构。
type fileConfig struct {
	Markets map[string]Profile `mapstructure:"markets"`
}

// Snapshot 某一版本的市场全集，供只读方使用。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Markets  map[string]Profile
}

// ChangeListener 在注册表热更新后收到新快照。
type ChangeListener func(Snapshot)

// Registry 持有市场档案并监听配置文件变更。
// 重载失败时保留上一版有效配置。
type Registry struct {
	mu         sync.RWMutex
	markets    map[string]Profile
	defaultKey string
	version    int64
	loadedAt   time.Time

	path      string
	v         *viper.Viper
	listeners []ChangeListener
}

// NewRegistry 加载市场档案。path 为空时仅启用内置市场，不做监听。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if path == "" {
		if err := r.reload(); err != nil {
			return nil, err
		}
		return r, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read market config %s: %w", path, err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("market reload failed (%s): %v", evt.Name, err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// reload 重新读取文件，与内置市场合并后原子替换当前集合。
func (r *Registry) reload() error {
	merged := builtinProfiles()
	if r.v != nil {
		var fc fileConfig
		if err := r.v.Unmarshal(&fc); err != nil {
			return fmt.Errorf("parse market config: %w", err)
		}
		for key, raw := range fc.Markets {
			p, err := normalizeProfile(key, raw)
			if err != nil {
				return err
			}
			merged[p.Key] = p
		}
	}

	defaultKey, err := resolveDefault(merged)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.markets = merged
	r.defaultKey = defaultKey
	r.version++
	r.loadedAt = time.Now()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if r.path != "" {
		logger.Infof("Market registry reloaded %d markets from %s", len(merged), filepath.Base(r.path))
	}
	r.notify(snap)
	return nil
}

// resolveDefault 至多允许一个 default 标记；缺省回落到内置市场。
func resolveDefault(markets map[string]Profile) (string, error) {
	var flagged []string
	for key, p := range markets {
		if p.Default {
			flagged = append(flagged, key)
		}
	}
	switch len(flagged) {
	case 0:
	case 1:
		return flagged[0], nil
	default:
		sort.Strings(flagged)
		return "", fmt.Errorf("multiple default markets: %v", flagged)
	}
	if _, ok := markets[DefaultKey]; ok {
		return DefaultKey, nil
	}
	keys := make([]string, 0, len(markets))
	for key := range markets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys[0], nil
}

// Subscribe 注册监听器并立即异步推送当前快照。
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	go func() {
		defer safeRecover()
		fn(snap)
	}()
}

func (r *Registry) notify(snap Snapshot) {
	r.mu.RLock()
	listeners := make([]ChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		go func(fn ChangeListener) {
			defer safeRecover()
			fn(snap)
		}(fn)
	}
}

func safeRecover() {
	if rec := recover(); rec != nil {
		logger.Errorf("market listener panic: %v", rec)
	}
}

// Snapshot 返回当前市场全集的副本。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	out := make(map[string]Profile, len(r.markets))
	for key, p := range r.markets {
		out[key] = p
	}
	return Snapshot{Version: r.version, LoadedAt: r.loadedAt, Markets: out}
}

// Profile 按 key 查市场，key 为空时返回默认市场。
func (r *Registry) Profile(key string) (Profile, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == "" {
		key = r.defaultKey
	}
	p, ok := r.markets[key]
	return p, ok
}

// Default 返回默认市场。
func (r *Registry) Default() Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.markets[r.defaultKey]
}

// Keys 返回排序后的市场 key 列表。
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.markets))
	for key := range r.markets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Version 当前配置版本号，自进程启动起单调递增。
func (r *Registry) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// builtinProfiles 内置市场定义。NSE 是引擎的参考市场，
// 不带 default 标记，避免与配置文件里的标记冲突；
// 无任何标记时 resolveDefault 会回落到它。
func builtinProfiles() map[string]Profile {
	nse, err := normalizeProfile(DefaultKey, Profile{
		DisplayName: "NSE",
		Timezone:    "Asia/Kolkata",
		Open:        "09:15",
		Close:       "15:30",
		Epoch:       "1992-07-01 09:15",
		Weekdays:    []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
	})
	if err != nil {
		panic(fmt.Sprintf("builtin market: %v", err))
	}
	return map[string]Profile{nse.Key: nse}
}
