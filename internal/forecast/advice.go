package forecast

import "muhurta/internal/jyotish"

// TradingAdvice 从会话摘要推导的仓位与策略建议。
type TradingAdvice struct {
	PositionSize string `json:"position_size"`
	StopLoss     string `json:"stop_loss"`
	Strategy     string `json:"strategy"`
	RiskNote     string `json:"risk_note"`
}

// Advise 纯映射，不回看逐分钟明细；空摘要返回零值。
func Advise(summary SessionSummary) TradingAdvice {
	if summary.Records == 0 {
		return TradingAdvice{}
	}
	advice := TradingAdvice{RiskNote: summary.Risk.Advice}
	switch summary.Risk.Level {
	case RiskHigh:
		advice.PositionSize = "10-15% of capital"
		advice.StopLoss = "Tight (0.5-1%)"
	case RiskMedium:
		advice.PositionSize = "20-25% of capital"
		advice.StopLoss = "Normal (1-2%)"
	default:
		advice.PositionSize = "30-40% of capital"
		advice.StopLoss = "Relaxed (2-3%)"
	}
	switch summary.Direction {
	case jyotish.DirectionBullish:
		advice.Strategy = "Long bias - Buy on dips"
	case jyotish.DirectionBearish:
		advice.Strategy = "Short bias - Sell on rallies"
	default:
		advice.Strategy = "Range trading - Fade extremes"
	}
	return advice
}
