// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"beats-prose-api/internal/application/presentation"
	"beats-prose-api/internal/domain/entity"
)

// renderedMessageCount 展示层只渲染最近 3 条消息
const renderedMessageCount = 3

// SubmitMessageRequest 对话输入请求。
// 不做 required 校验：空白输入是合法的 no-op 提交
type SubmitMessageRequest struct {
	Text string `json:"text"`
}

// AddBeatRequest 追加节拍请求
type AddBeatRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddCharacterRequest 追加角色请求
type AddCharacterRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CommitFieldRequest 提交字段编辑请求
type CommitFieldRequest struct {
	Value string `json:"value"`
}

// UpdateControlsRequest 更新生成控制参数请求。
// 用指针以区分缺省与合法的零值 (temperature=0)
type UpdateControlsRequest struct {
	Temperature     *float64 `json:"temperature" binding:"required"`
	ApproxWordCount *int     `json:"approx_word_count" binding:"required"`
}

// MessageResponse 消息响应
type MessageResponse struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// CharacterResponse 角色响应
type CharacterResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ColorTag    string `json:"color_tag"`
}

// StoryParametersResponse 故事参数响应
type StoryParametersResponse struct {
	Beats      []string            `json:"beats"`
	Characters []CharacterResponse `json:"characters"`
	Setting    string              `json:"setting"`
	Genre      string              `json:"genre"`
	Style      string              `json:"style"`
}

// ControlsResponse 生成控制参数响应
type ControlsResponse struct {
	Temperature     float64 `json:"temperature"`
	ApproxWordCount int     `json:"approx_word_count"`
}

// FieldEditResponse 进行中的字段编辑草稿
type FieldEditResponse struct {
	Field  string `json:"field"`
	Staged string `json:"staged"`
}

// SessionResponse 会话视图
type SessionResponse struct {
	Step             string                  `json:"step"`
	Prompt           string                  `json:"prompt"`
	Messages         []MessageResponse       `json:"messages"`
	RecentMessages   []MessageResponse       `json:"recent_messages"`
	Params           StoryParametersResponse `json:"params"`
	Controls         ControlsResponse        `json:"controls"`
	FieldEdits       []FieldEditResponse     `json:"field_edits,omitempty"`
	HasResult        bool                    `json:"has_result"`
	Loading          bool                    `json:"loading"`
	Cancelled        bool                    `json:"cancelled"`
	PresentationMode string                  `json:"presentation_mode"`
	Epoch            uint64                  `json:"epoch"`
	UpdatedAt        string                  `json:"updated_at"`
}

// GenerationResultResponse 生成结果视图
type GenerationResultResponse struct {
	GenerationID string `json:"generation_id"`
	Prose        string `json:"prose"`
	WordCount    int    `json:"word_count"`
	GeneratedAt  string `json:"generated_at"`
}

// ToSessionResponse 由会话快照构造视图
func ToSessionResponse(s entity.Session) *SessionResponse {
	params := StoryParametersResponse{
		Beats:      append([]string{}, s.Params.Beats...),
		Characters: make([]CharacterResponse, 0, len(s.Params.Characters)),
		Setting:    s.Params.Setting,
		Genre:      s.Params.Genre,
		Style:      s.Params.Style,
	}
	for _, c := range s.Params.Characters {
		params.Characters = append(params.Characters, CharacterResponse{
			Name:        c.Name,
			Description: c.Description,
			ColorTag:    c.ColorTag,
		})
	}

	edits := make([]FieldEditResponse, 0, len(s.FieldEdits))
	for field, staged := range s.FieldEdits {
		edits = append(edits, FieldEditResponse{Field: string(field), Staged: staged})
	}

	return &SessionResponse{
		Step:           string(s.Step),
		Prompt:         s.Prompt,
		Messages:       toMessageResponses(s.Messages),
		RecentMessages: toMessageResponses(s.RecentMessages(renderedMessageCount)),
		Params:         params,
		Controls: ControlsResponse{
			Temperature:     s.Controls.Temperature,
			ApproxWordCount: s.Controls.ApproxWordCount,
		},
		FieldEdits:       edits,
		HasResult:        s.HasResult(),
		Loading:          s.Loading,
		Cancelled:        s.Cancelled,
		PresentationMode: string(presentation.Resolve(s.HasResult(), s.PanelToggled)),
		Epoch:            s.Epoch,
		UpdatedAt:        s.UpdatedAt.Format(time.RFC3339),
	}
}

// ToGenerationResultResponse 由生成结果构造视图
func ToGenerationResultResponse(r *entity.GenerationResult) *GenerationResultResponse {
	return &GenerationResultResponse{
		GenerationID: r.GenerationID,
		Prose:        r.Prose,
		WordCount:    r.WordCount,
		GeneratedAt:  r.GeneratedAt.Format(time.RFC3339),
	}
}

func toMessageResponses(messages []entity.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponse{Sender: string(m.Sender), Text: m.Text})
	}
	return out
}
