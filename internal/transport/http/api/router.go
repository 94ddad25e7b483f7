package apihttp

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"muhurta/internal/logger"
	"muhurta/internal/market"
	"muhurta/internal/rules"
	"muhurta/internal/service"
	"muhurta/internal/visual"
)

const dateLayout = "2006-01-02"

// Router 暴露会话预测查询与仪表盘路由。
type Router struct {
	Forecasts *service.ForecastService
	Markets   *market.Registry
	Rules     *rules.Registry

	pageTitle       string
	snapshotEnabled bool
}

// NewRouter 构造 API router。
func NewRouter(forecasts *service.ForecastService, markets *market.Registry, ruleReg *rules.Registry, pageTitle string, snapshotEnabled bool) *Router {
	if strings.TrimSpace(pageTitle) == "" {
		pageTitle = "Muhurta Session Dashboard"
	}
	return &Router{
		Forecasts:       forecasts,
		Markets:         markets,
		Rules:           ruleReg,
		pageTitle:       pageTitle,
		snapshotEnabled: snapshotEnabled,
	}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/markets", r.handleMarkets)
	group.GET("/session/forecast", r.handleSessionForecast)
	group.GET("/session/summary", r.handleSessionSummary)
	group.GET("/session/critical", r.handleSessionCritical)
	group.GET("/rules", r.handleRules)
}

// RegisterDashboard 仪表盘页面挂在根路径，方便浏览器直接打开。
func (r *Router) RegisterDashboard(engine *gin.Engine) {
	if engine == nil {
		return
	}
	engine.GET("/dashboard", r.handleDashboard)
	engine.GET("/dashboard/snapshot.png", r.handleSnapshot)
}

type marketView struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Timezone    string   `json:"timezone"`
	Open        string   `json:"open"`
	Close       string   `json:"close"`
	Epoch       string   `json:"epoch"`
	Weekdays    []string `json:"weekdays"`
	Default     bool     `json:"default"`
}

func (r *Router) handleMarkets(c *gin.Context) {
	snap := r.Markets.Snapshot()
	def := r.Markets.Default()

	keys := make([]string, 0, len(snap.Markets))
	for key := range snap.Markets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	views := make([]marketView, 0, len(keys))
	for _, key := range keys {
		p := snap.Markets[key]
		weekdays := make([]string, 0, 7)
		for _, wd := range p.TradingWeekdays() {
			weekdays = append(weekdays, wd.String())
		}
		views = append(views, marketView{
			Key:         p.Key,
			DisplayName: p.DisplayName,
			Timezone:    p.Timezone,
			Open:        p.Open,
			Close:       p.Close,
			Epoch:       p.Epoch,
			Weekdays:    weekdays,
			Default:     p.Key == def.Key,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version,
		"loadedAt": snap.LoadedAt,
		"default":  def.Key,
		"markets":  views,
	})
}

// resolveRequest 解析 market/date 参数；date 缺省取市场时区的今天。
func (r *Router) resolveRequest(c *gin.Context) (market.Profile, time.Time, bool) {
	marketKey := strings.TrimSpace(c.Query("market"))
	profile, ok := r.Markets.Profile(marketKey)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown market %q", marketKey)})
		return market.Profile{}, time.Time{}, false
	}
	day := time.Now().In(profile.Location())
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, profile.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw)})
			return market.Profile{}, time.Time{}, false
		}
		day = parsed
	}
	return profile, day, true
}

// renderForecastError 参数错误回 400，生成链路失败回 502。
func (r *Router) renderForecastError(c *gin.Context, marketKey string, err error) {
	if errors.Is(err, service.ErrUnknownMarket) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Errorf("[api] session forecast failed ip=%s market=%s err=%v", c.ClientIP(), marketKey, err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func (r *Router) handleSessionForecast(c *gin.Context) {
	profile, day, ok := r.resolveRequest(c)
	if !ok {
		return
	}
	f, err := r.Forecasts.SessionForecast(c.Request.Context(), profile.Key, day)
	if err != nil {
		r.renderForecastError(c, profile.Key, err)
		return
	}
	logger.Debugf("[api] session forecast ip=%s market=%s date=%s records=%d", c.ClientIP(), f.Market, f.Date, len(f.Records))
	c.JSON(http.StatusOK, f)
}

func (r *Router) handleSessionSummary(c *gin.Context) {
	profile, day, ok := r.resolveRequest(c)
	if !ok {
		return
	}
	f, err := r.Forecasts.SessionForecast(c.Request.Context(), profile.Key, day)
	if err != nil {
		r.renderForecastError(c, profile.Key, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":        f.RunID,
		"market":        f.Market,
		"market_name":   f.MarketName,
		"date":          f.Date,
		"summary":       f.Summary,
		"advice":        f.Advice,
		"rules_version": f.RulesVersion,
		"generated_at":  f.GeneratedAt,
	})
}

func (r *Router) handleSessionCritical(c *gin.Context) {
	profile, day, ok := r.resolveRequest(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	f, err := r.Forecasts.SessionForecast(c.Request.Context(), profile.Key, day)
	if err != nil {
		r.renderForecastError(c, profile.Key, err)
		return
	}
	records := f.CriticalRecords(limit)
	c.JSON(http.StatusOK, gin.H{
		"market":  f.Market,
		"date":    f.Date,
		"count":   len(records),
		"records": records,
	})
}

func (r *Router) handleRules(c *gin.Context) {
	if r.Rules == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "规则注册表未启用"})
		return
	}
	snap := r.Rules.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version,
		"loadedAt": snap.LoadedAt,
		"rules":    snap.Rules,
	})
}

func (r *Router) handleDashboard(c *gin.Context) {
	profile, day, ok := r.resolveRequest(c)
	if !ok {
		return
	}
	f, err := r.Forecasts.SessionForecast(c.Request.Context(), profile.Key, day)
	if err != nil {
		r.renderForecastError(c, profile.Key, err)
		return
	}
	html, err := visual.BuildDashboardHTML(visual.DashboardInput{Title: r.pageTitle, Forecast: f})
	if err != nil {
		logger.Errorf("[api] dashboard render failed ip=%s market=%s err=%v", c.ClientIP(), f.Market, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (r *Router) handleSnapshot(c *gin.Context) {
	if !r.snapshotEnabled {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot rendering disabled"})
		return
	}
	profile, day, ok := r.resolveRequest(c)
	if !ok {
		return
	}
	f, err := r.Forecasts.SessionForecast(c.Request.Context(), profile.Key, day)
	if err != nil {
		r.renderForecastError(c, profile.Key, err)
		return
	}
	html, err := visual.BuildDashboardHTML(visual.DashboardInput{Title: r.pageTitle, Forecast: f})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	png, err := visual.RenderSnapshot(c.Request.Context(), html)
	if err != nil {
		logger.Errorf("[api] dashboard snapshot failed ip=%s market=%s err=%v", c.ClientIP(), f.Market, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] dashboard snapshot ip=%s market=%s date=%s bytes=%d", c.ClientIP(), f.Market, f.Date, len(png))
	c.Data(http.StatusOK, "image/png", png)
}
