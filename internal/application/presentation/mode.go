// Package presentation 推导会话面板的展示模式
package presentation

// Mode 面板展示模式
type Mode string

const (
	// ModeBoth 对话与故事面板并排
	ModeBoth Mode = "both"
	// ModeConversationOnly 只显示对话面板（结果产生前的收起态）
	ModeConversationOnly Mode = "conversation_only"
	// ModeResultOnly 只显示故事面板（结果产生后的收起态）
	ModeResultOnly Mode = "result_only"
)

// Resolve 由 (是否已有结果, 开关是否翻转) 推导展示模式。
// 纯函数：不持有任何状态，每次渲染重新计算。
func Resolve(hasResult, toggled bool) Mode {
	if !toggled {
		return ModeBoth
	}
	if hasResult {
		return ModeResultOnly
	}
	return ModeConversationOnly
}
