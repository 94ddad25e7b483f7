package scheduler

import (
	"fmt"
	"time"

	"muhurta/internal/notifier"
	"muhurta/internal/service"
)

const maxWindowLines = 3

// formatForecastMessage 把整场预测压成一条推送摘要。
func formatForecastMessage(f *service.Forecast) notifier.StructuredMessage {
	sum := f.Summary
	overview := notifier.MessageSection{
		Title: "Overview",
		Lines: []string{
			fmt.Sprintf("Direction: %s (%.0f%% of votes)", sum.Direction, sum.Confidence*100),
			fmt.Sprintf("Avg volatility: %.2f", sum.AverageVolatility),
			fmt.Sprintf("Character: %s", sum.Character),
			fmt.Sprintf("Segment changes: %d", len(f.Transitions)),
		},
	}

	windows := notifier.MessageSection{Title: "Key Windows"}
	for i, w := range sum.NotableWindows {
		if i >= maxWindowLines {
			windows.Lines = append(windows.Lines,
				fmt.Sprintf("(+%d more)", len(sum.NotableWindows)-maxWindowLines))
			break
		}
		line := w.Type
		if len(w.Times) > 0 {
			line += " @ " + w.Times[0]
		}
		windows.Lines = append(windows.Lines, line)
	}

	rulers := notifier.MessageSection{Title: "Dominant Influences"}
	for _, share := range sum.DominantRulers {
		rulers.Lines = append(rulers.Lines,
			fmt.Sprintf("%s %.1f%%", share.Graha, share.Percentage))
	}

	risk := notifier.MessageSection{
		Title: "Risk & Advice",
		Lines: []string{
			fmt.Sprintf("%s - %s", sum.Risk.Level, sum.Risk.Advice),
			fmt.Sprintf("Position: %s", f.Advice.PositionSize),
			fmt.Sprintf("Stop loss: %s", f.Advice.StopLoss),
			f.Advice.Strategy,
		},
	}

	return notifier.StructuredMessage{
		Icon:      "🌙",
		Title:     fmt.Sprintf("%s Session Outlook %s", f.MarketName, f.Date),
		Sections:  []notifier.MessageSection{overview, windows, rulers, risk},
		Footer:    fmt.Sprintf("run %s · rules v%d", f.RunID, f.RulesVersion),
		Timestamp: time.Now(),
	}
}
