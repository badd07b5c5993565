// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"beats-prose-api/internal/application/generation"
	"beats-prose-api/internal/application/session"
	"beats-prose-api/internal/domain/entity"
	"beats-prose-api/internal/interfaces/http/dto"
	"beats-prose-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionHandler 会话处理器：对话提交、带外编辑、控制参数、展示开关
type SessionHandler struct {
	sessions     *session.Manager
	orchestrator *generation.Orchestrator
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *session.Manager, orchestrator *generation.Orchestrator) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
	}
}

// Get 返回当前会话视图
// @Router /v1/session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	view := h.sessions.View()
	dto.Success(c, dto.ToSessionResponse(view))
}

// SubmitMessage 处理一条对话输入，驱动采集状态机。
// 在 CONFIRM 步骤得到肯定答复时同步执行生成周期：请求在途期间
// 会话处于加载态，其它提交与编辑都会收到 409。
// 生成失败不作为 HTTP 错误返回——失败以机器人消息呈现在会话里。
// @Router /v1/session/messages [post]
func (h *SessionHandler) SubmitMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, job, err := h.sessions.Submit(ctx, req.Text)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if job != nil {
		// 同步等待生成完成；错误已合并进会话并记录日志
		if execErr := h.orchestrator.Execute(ctx, job); execErr != nil {
			logger.Error(ctx, "generation cycle failed", execErr)
		}
		view = h.sessions.View()
	}

	dto.Success(c, dto.ToSessionResponse(view))
}

// Reset 重置会话；与输入 start over 等效，加载中也允许
// @Router /v1/session/reset [post]
func (h *SessionHandler) Reset(c *gin.Context) {
	view := h.sessions.Reset(c.Request.Context())
	dto.Success(c, dto.ToSessionResponse(view))
}

// AddBeat 带外追加节拍
// @Router /v1/session/beats [post]
func (h *SessionHandler) AddBeat(c *gin.Context) {
	var req dto.AddBeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sessions.AddBeat(req.Text)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// RemoveBeat 带外删除节拍；越界索引是静默 no-op
// @Router /v1/session/beats/{index} [delete]
func (h *SessionHandler) RemoveBeat(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}

	view, err := h.sessions.RemoveBeat(index)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// AddCharacter 带外追加角色
// @Router /v1/session/characters [post]
func (h *SessionHandler) AddCharacter(c *gin.Context) {
	var req dto.AddCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sessions.AddCharacter(req.Name, req.Description)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// RemoveCharacter 带外删除角色；剩余角色颜色不变
// @Router /v1/session/characters/{index} [delete]
func (h *SessionHandler) RemoveCharacter(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}

	view, err := h.sessions.RemoveCharacter(index)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// BeginEdit 进入字段编辑模式
// @Router /v1/session/fields/{field}/edit [post]
func (h *SessionHandler) BeginEdit(c *gin.Context) {
	field, ok := bindField(c)
	if !ok {
		return
	}

	view, err := h.sessions.BeginEdit(field)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// CommitEdit 提交字段编辑
// @Router /v1/session/fields/{field} [put]
func (h *SessionHandler) CommitEdit(c *gin.Context) {
	field, ok := bindField(c)
	if !ok {
		return
	}

	var req dto.CommitFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sessions.CommitEdit(field, req.Value)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// CancelEdit 取消字段编辑并丢弃草稿
// @Router /v1/session/fields/{field}/edit [delete]
func (h *SessionHandler) CancelEdit(c *gin.Context) {
	field, ok := bindField(c)
	if !ok {
		return
	}

	view, err := h.sessions.CancelEdit(field)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// UpdateControls 更新生成控制参数
// @Router /v1/session/controls [put]
func (h *SessionHandler) UpdateControls(c *gin.Context) {
	var req dto.UpdateControlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.sessions.UpdateControls(entity.GenerationControls{
		Temperature:     *req.Temperature,
		ApproxWordCount: *req.ApproxWordCount,
	})
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(view))
}

// TogglePresentation 翻转面板展示开关
// @Router /v1/session/presentation/toggle [post]
func (h *SessionHandler) TogglePresentation(c *gin.Context) {
	view := h.sessions.TogglePresentation()
	dto.Success(c, dto.ToSessionResponse(view))
}

// GetResult 返回生成结果；尚无结果时返回 404
// @Router /v1/session/result [get]
func (h *SessionHandler) GetResult(c *gin.Context) {
	result, err := h.sessions.Result()
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToGenerationResultResponse(result))
}

// bindIndex 解析路径中的序号参数；非法序号直接 400
func bindIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		dto.BadRequest(c, "invalid index: "+c.Param("index"))
		return 0, false
	}
	return index, true
}

// bindField 解析路径中的字段名；只允许 setting/genre/style
func bindField(c *gin.Context) (entity.StoryField, bool) {
	field, ok := entity.ValidStoryField(c.Param("field"))
	if !ok {
		dto.BadRequest(c, "unknown field: "+c.Param("field"))
		return "", false
	}
	return field, true
}
