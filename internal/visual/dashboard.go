package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"muhurta/internal/forecast"
	"muhurta/internal/jyotish"
	"muhurta/internal/service"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorHighMark      = "#f87171"
	colorInfluence     = "#a78bfa"
	colorVolatility    = "#fbbf24"
	colorDirection     = "#22d3ee"

	chartWidthPx  = 1500
	chartHeightPx = 420

	highInfluenceMark = 0.7
	maxComboSeries    = 10
)

// DashboardInput 仪表盘渲染所需的全部内容。
type DashboardInput struct {
	Title    string
	Forecast *service.Forecast
}

// BuildDashboardHTML 把一场会话预测画成 go-echarts 页面，指标卡插在图表上方。
func BuildDashboardHTML(input DashboardInput) ([]byte, error) {
	f := input.Forecast
	if f == nil || len(f.Records) == 0 {
		return nil, fmt.Errorf("no records to draw")
	}
	title := input.Title
	if title == "" {
		title = "Session Dashboard"
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	xAxis := timeAxis(f.Records)
	page.AddCharts(
		buildInfluenceChart(title, f, xAxis),
		buildVolatilityChart(f, xAxis),
		buildDirectionChart(f, xAxis),
		buildComboChart(f, xAxis),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	// echarts 页面没有现成的指标卡区域，渲染后插到 body 开头。
	return bytes.Replace(buf.Bytes(), []byte("<body>"), []byte("<body>\n"+summaryHeader(f)), 1), nil
}

func chartInit() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func buildInfluenceChart(pageTitle string, f *service.Forecast, xAxis []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s · %s %s", pageTitle, f.MarketName, f.Date),
			Subtitle:      fmt.Sprintf("run %s · rules v%d", f.RunID, f.RulesVersion),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min:       0,
			Max:       1,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	influence := make([]opts.LineData, len(f.Records))
	for i, rec := range f.Records {
		influence[i] = opts.LineData{Value: rec.Influence}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Influence", influence,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorInfluence, Width: 2}),
		charts.WithMarkLineNameXAxisItemOpts(transitionMarks(f.Transitions)...),
	)

	scatter := charts.NewScatter()
	scatter.SetXAxis(xAxis)
	scatter.AddSeries("High Influence", highInfluencePoints(f.Records),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorHighMark}),
	)
	line.Overlap(scatter)
	return line
}

func buildVolatilityChart(f *service.Forecast, xAxis []string) *charts.Line {
	sum := f.Summary
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Volatility",
			Subtitle:      fmt.Sprintf("avg %.2f · %s", sum.AverageVolatility, sum.Character),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min:       0,
			Max:       1,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	vol := make([]opts.LineData, len(f.Records))
	for i, rec := range f.Records {
		vol[i] = opts.LineData{Value: rec.Volatility}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Volatility", vol,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorVolatility, Width: 2}),
	)
	return line
}

func buildDirectionChart(f *service.Forecast, xAxis []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Direction",
			Subtitle:      "1 bullish / 0 neutral or uncertain / -1 bearish",
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min:       -1,
			Max:       1,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	dir := make([]opts.LineData, len(f.Records))
	for i, rec := range f.Records {
		dir[i] = opts.LineData{Value: directionLevel(rec.Direction)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Direction", dir,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDirection, Width: 2}),
	)
	return line
}

// buildComboChart 每个 大运/小运/星区主星 组合一条影响力序列，颜色交给主题调色板。
func buildComboChart(f *service.Forecast, xAxis []string) *charts.Line {
	combos := topCombinations(f.Records)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Influence by Mahadasha / Bhukti / Nakshatra Lord",
			Subtitle:      fmt.Sprintf("%d combinations in session", len(combos)),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min:       0,
			Max:       1,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	line.SetXAxis(xAxis)
	for _, key := range combos {
		data := make([]opts.LineData, len(f.Records))
		for i, rec := range f.Records {
			if comboKey(rec) == key {
				data[i] = opts.LineData{Value: rec.Influence}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(key, data)
	}
	return line
}

// summaryHeader 图表上方的一行指标卡。
func summaryHeader(f *service.Forecast) string {
	sum := f.Summary
	cards := [...][2]string{
		{"Direction", fmt.Sprintf("%s (%.0f%%)", sum.Direction, sum.Confidence*100)},
		{"Avg Volatility", fmt.Sprintf("%.2f", sum.AverageVolatility)},
		{"Character", sum.Character},
		{"Risk", fmt.Sprintf("%s · %s", sum.Risk.Level, sum.Risk.Advice)},
	}
	var sb strings.Builder
	sb.WriteString(`<div style="background:` + colorBackground + `;padding:16px 24px;font-family:sans-serif;display:flex;gap:48px;">`)
	for _, card := range cards {
		sb.WriteString(`<div><div style="color:` + colorTextSecondary + `;font-size:12px;">`)
		sb.WriteString(card[0])
		sb.WriteString(`</div><div style="color:` + colorTextPrimary + `;font-size:18px;">`)
		sb.WriteString(card[1])
		sb.WriteString(`</div></div>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

func timeAxis(records []forecast.PredictionRecord) []string {
	x := make([]string, len(records))
	for i, rec := range records {
		x[i] = rec.TimeLabel
	}
	return x
}

func highInfluencePoints(records []forecast.PredictionRecord) []opts.ScatterData {
	data := make([]opts.ScatterData, len(records))
	for i, rec := range records {
		if rec.Influence > highInfluenceMark {
			data[i] = opts.ScatterData{Value: rec.Influence, Symbol: "circle", SymbolSize: 10}
		} else {
			data[i] = opts.ScatterData{Value: nil}
		}
	}
	return data
}

func transitionMarks(transitions []forecast.Transition) []opts.MarkLineNameXAxisItem {
	marks := make([]opts.MarkLineNameXAxisItem, 0, len(transitions))
	for _, tr := range transitions {
		marks = append(marks, opts.MarkLineNameXAxisItem{
			Name:  fmt.Sprintf("%s to %s", tr.From, tr.To),
			XAxis: tr.TimeLabel,
		})
	}
	return marks
}

func directionLevel(d jyotish.Direction) float64 {
	switch d {
	case jyotish.DirectionBullish:
		return 1
	case jyotish.DirectionBearish:
		return -1
	default:
		return 0
	}
}

func comboKey(rec forecast.PredictionRecord) string {
	return fmt.Sprintf("%s/%s/%s", rec.Major, rec.Sub, rec.SegmentRuler)
}

// topCombinations 按占用分钟数降序，最多保留 maxComboSeries 条，图例才放得下。
func topCombinations(records []forecast.PredictionRecord) []string {
	counts := make(map[string]int)
	order := make([]string, 0, 8)
	for _, rec := range records {
		key := comboKey(rec)
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxComboSeries {
		order = order[:maxComboSeries]
	}
	return order
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable 检查无头浏览器是否可用，结果缓存进程级。
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderSnapshot 把仪表盘 HTML 截成 PNG，质量 100 时 chromedp 按 png 编码输出。
func RenderSnapshot(ctx context.Context, html []byte) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	height := 4*chartHeightPx + 160
	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(chartWidthPx), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
