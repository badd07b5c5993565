package entity

import "time"

// Step 对话采集状态机的步骤
type Step string

const (
	StepBeat                 Step = "beat"
	StepBeatConfirm          Step = "beat_confirm"
	StepCharacterName        Step = "character_name"
	StepCharacterDescription Step = "character_description"
	StepCharacters           Step = "characters"
	StepSetting              Step = "setting"
	StepGenre                Step = "genre"
	StepStyle                Step = "style"
	StepConfirm              Step = "confirm"
	StepGenerate             Step = "generate"
	StepExtend               Step = "extend"
)

// StoryField 可带外编辑的标量故事参数字段
type StoryField string

const (
	FieldSetting StoryField = "setting"
	FieldGenre   StoryField = "genre"
	FieldStyle   StoryField = "style"
)

// ValidStoryField 判断字段名是否可编辑
func ValidStoryField(f string) (StoryField, bool) {
	switch StoryField(f) {
	case FieldSetting, FieldGenre, FieldStyle:
		return StoryField(f), true
	default:
		return "", false
	}
}

// Session 单一会话聚合：步骤、消息日志、故事参数、生成控制、生成结果、
// 加载态与展示开关全部收口在这里，保证 start over 的重置是原子的。
type Session struct {
	Step     Step               `json:"step"`
	Prompt   string             `json:"prompt"`
	Messages []Message          `json:"messages"`
	Params   *StoryParameters   `json:"params"`
	Controls GenerationControls `json:"controls"`
	Result   *GenerationResult  `json:"result,omitempty"`

	// PendingCharacterName 角色两步采集间暂存的候选名
	PendingCharacterName string `json:"-"`
	// FieldEdits 带外编辑器暂存的字段草稿；取消编辑即丢弃
	FieldEdits map[StoryField]string `json:"-"`

	// Cancelled 在 CONFIRM 步骤拒绝生成后置位；仅重置可恢复
	Cancelled bool `json:"cancelled"`
	// Loading 生成请求在途；期间阻塞对话提交与编辑器变更
	Loading bool `json:"loading"`
	// PanelToggled 展示模式开关；重置与新结果产生时归位
	PanelToggled bool `json:"panel_toggled"`

	// Epoch 会话纪元；每次重置递增，用于丢弃被取代请求的迟到响应
	Epoch uint64 `json:"epoch"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession 创建初始会话
func NewSession(controls GenerationControls) *Session {
	now := time.Now()
	return &Session{
		Step:       StepBeat,
		Messages:   make([]Message, 0),
		Params:     NewStoryParameters(),
		Controls:   controls,
		FieldEdits: make(map[StoryField]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AppendBot 追加机器人消息
func (s *Session) AppendBot(text string) {
	s.Messages = append(s.Messages, NewBotMessage(text))
	s.UpdatedAt = time.Now()
}

// AppendUser 追加用户消息
func (s *Session) AppendUser(text string) {
	s.Messages = append(s.Messages, NewUserMessage(text))
	s.UpdatedAt = time.Now()
}

// HasResult 判断是否已有生成结果
func (s *Session) HasResult() bool {
	return s.Result != nil
}

// RecentMessages 返回最近 n 条消息（展示层只渲染最近 3 条）
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
