package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"muhurta/internal/jyotish"
	"muhurta/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 组合规则类型。
const (
	KindDashaPair    = "dasha_pair"    // 大运主星 + 小运主星
	KindSegmentMajor = "segment_major" // 星区主星 + 大运主星
)

// Rule 单条组合规则，命中时把 Label 追加到当期事件。
type Rule struct {
	Kind         string        `yaml:"kind" json:"kind"`
	Major        jyotish.Graha `yaml:"major,omitempty" json:"major,omitempty"`
	Sub          jyotish.Graha `yaml:"sub,omitempty" json:"sub,omitempty"`
	SegmentRuler jyotish.Graha `yaml:"segment_ruler,omitempty" json:"segment_ruler,omitempty"`
	Label        string        `yaml:"label" json:"label"`
}

// Matches 判断规则是否命中当前主星组合。
func (r Rule) Matches(segmentRuler, major, sub jyotish.Graha) bool {
	switch r.Kind {
	case KindDashaPair:
		return r.Major == major && r.Sub == sub
	case KindSegmentMajor:
		return r.Major == major && r.SegmentRuler == segmentRuler
	default:
		return false
	}
}

func (r Rule) key() string {
	return strings.Join([]string{r.Kind, string(r.Major), string(r.Sub), string(r.SegmentRuler)}, "|")
}

// defaultRulesYAML 内置规则，规则文件在其基础上覆盖或追加。
const defaultRulesYAML = `
rules:
  - kind: dasha_pair
    major: Rahu
    sub: Mars
    label: Rahu-Mars combination - High volatility expected
  - kind: segment_major
    major: Jupiter
    segment_ruler: Jupiter
    label: Double Jupiter influence - Bullish bias
`

const ruleSchemaJSON = `{
  "type": "object",
  "required": ["rules"],
  "additionalProperties": false,
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kind", "label"],
        "additionalProperties": false,
        "properties": {
          "kind": {"enum": ["dasha_pair", "segment_major"]},
          "major": {"type": "string"},
          "sub": {"type": "string"},
          "segment_ruler": {"type": "string"},
          "label": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

type fileConfig struct {
	Rules []Rule `yaml:"rules"`
}

// Snapshot 当前生效的规则集，Version 随每次重载递增。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Rules    []Rule
}

// ChangeListener 在规则集重载成功后触发。
type ChangeListener func(Snapshot)

// Registry 管理组合规则：内置默认 + 可热更的规则文件。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledRuleSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("rules.json", strings.NewReader(ruleSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("rules.json")
	})
	return compiledSchema, schemaErr
}

// NewRegistry 加载规则集。path 为空时只用内置规则，不监听文件。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if r.path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules file failed: %w", err)
	}
	r.v = v
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("rules reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前规则集副本。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Subscribe 注册重载回调。
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	merged, err := loadRuleSet(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Rules:    merged,
	}
	r.mu.Unlock()
	if r.path != "" {
		logger.Infof("combination rules loaded: %d entries from %s", len(merged), filepath.Base(r.path))
	}
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("rules listener")
			cb(snap)
		}(fn)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{Version: src.Version, LoadedAt: src.LoadedAt}
	dst.Rules = append([]Rule(nil), src.Rules...)
	return dst
}

func safeRecover(tag string) {
	if rec := recover(); rec != nil {
		logger.Errorf("%s panic: %v", tag, rec)
	}
}

// loadRuleSet 返回内置规则与文件规则合并后的列表。
// 同一组合的文件规则覆盖内置文案，新组合按文件顺序追加。
func loadRuleSet(path string) ([]Rule, error) {
	defaults, err := decodeRules([]byte(defaultRulesYAML))
	if err != nil {
		return nil, fmt.Errorf("builtin rules invalid: %w", err)
	}
	if path == "" {
		return defaults, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file failed: %w", err)
	}
	fromFile, err := decodeRules(raw)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", filepath.Base(path), err)
	}

	merged := append([]Rule(nil), defaults...)
	index := make(map[string]int, len(merged))
	for i, rule := range merged {
		index[rule.key()] = i
	}
	for _, rule := range fromFile {
		if i, ok := index[rule.key()]; ok {
			merged[i] = rule
			continue
		}
		index[rule.key()] = len(merged)
		merged = append(merged, rule)
	}
	return merged, nil
}

func decodeRules(raw []byte) ([]Rule, error) {
	if err := validateRuleSchema(raw); err != nil {
		return nil, err
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse rules failed: %w", err)
	}
	out := make([]Rule, 0, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		norm, err := normalizeRule(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, norm)
	}
	return out, nil
}

func validateRuleSchema(raw []byte) error {
	schema, err := compiledRuleSchema()
	if err != nil {
		return fmt.Errorf("compile rules schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse rules yaml: %w", err)
	}
	// jsonschema 只认 JSON 解码出的类型，经 JSON 往返消除 yaml 的整型等差异。
	jsonRaw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("rules not json compatible: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonRaw, &jsonDoc); err != nil {
		return err
	}
	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("rules schema violation: %w", err)
	}
	return nil
}

func normalizeRule(rule Rule) (Rule, error) {
	rule.Label = strings.TrimSpace(rule.Label)
	if rule.Label == "" {
		return Rule{}, fmt.Errorf("label required")
	}
	major, err := jyotish.ParseGraha(string(rule.Major))
	if err != nil {
		return Rule{}, fmt.Errorf("major: %w", err)
	}
	rule.Major = major
	switch rule.Kind {
	case KindDashaPair:
		sub, err := jyotish.ParseGraha(string(rule.Sub))
		if err != nil {
			return Rule{}, fmt.Errorf("sub: %w", err)
		}
		rule.Sub = sub
		rule.SegmentRuler = ""
	case KindSegmentMajor:
		seg, err := jyotish.ParseGraha(string(rule.SegmentRuler))
		if err != nil {
			return Rule{}, fmt.Errorf("segment_ruler: %w", err)
		}
		rule.SegmentRuler = seg
		rule.Sub = ""
	default:
		return Rule{}, fmt.Errorf("unknown kind %q", rule.Kind)
	}
	return rule, nil
}
