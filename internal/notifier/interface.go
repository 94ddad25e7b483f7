package notifier

// TextNotifier 纯文本推送的最小接口。
// 调度器只依赖这一层，不关心具体通道（如 Telegram）。
type TextNotifier interface {
	SendText(text string) error
}
