// Package entity 定义领域实体
package entity

// Sender 消息发送方
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// Message 会话消息；消息日志在会话生命周期内只追加不删除
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// NewBotMessage 创建机器人消息
func NewBotMessage(text string) Message {
	return Message{Sender: SenderBot, Text: text}
}

// NewUserMessage 创建用户消息
func NewUserMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text}
}
