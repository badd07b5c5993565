package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"beats-prose-api/internal/application/generation"
	"beats-prose-api/internal/application/session"
	"beats-prose-api/internal/config"
	"beats-prose-api/internal/infrastructure/prose"
	"beats-prose-api/internal/interfaces/http/dto"
	"beats-prose-api/internal/interfaces/http/handler"
	"beats-prose-api/internal/interfaces/http/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	resp *prose.Response
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, _ *prose.Request) (*prose.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestServer(t *testing.T, gen prose.Generator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App: config.AppConfig{Name: "beats-prose-api", Version: "test", Env: "test"},
		Generation: config.GenerationConfig{
			DefaultTemperature: 0.7,
			DefaultWordCount:   1500,
		},
		Prose: config.ProseServiceConfig{BaseURL: "http://localhost:8000"},
	}

	sessions := session.NewManager(cfg)
	orchestrator := generation.NewOrchestrator(sessions, gen)

	r := router.New(cfg, router.Handlers{
		Health:  handler.NewHealthHandler(cfg),
		Session: handler.NewSessionHandler(sessions, orchestrator),
	})
	return r.Engine()
}

func perform(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type sessionEnvelope struct {
	Code int                 `json:"code"`
	Data dto.SessionResponse `json:"data"`
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) dto.SessionResponse {
	t.Helper()
	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func submit(t *testing.T, engine *gin.Engine, text string) *httptest.ResponseRecorder {
	t.Helper()
	return perform(t, engine, http.MethodPost, "/v1/session/messages", dto.SubmitMessageRequest{Text: text})
}

// driveToConfirm 走完采集流程，停在 confirm 步骤
func driveToConfirm(t *testing.T, engine *gin.Engine) {
	t.Helper()
	for _, input := range []string{"beat one", "no", "Aria", "a knight", "no", "castle", "fantasy", "dark"} {
		w := submit(t, engine, input)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestGetSession(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := perform(t, engine, http.MethodGet, "/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeSession(t, w)
	assert.Equal(t, "beat", view.Step)
	assert.Equal(t, "both", view.PresentationMode)
	assert.False(t, view.HasResult)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "bot", view.Messages[0].Sender)
}

func TestSubmitMessageAdvancesIntake(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := submit(t, engine, "The dragon wakes")
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeSession(t, w)
	assert.Equal(t, "beat_confirm", view.Step)
	assert.Equal(t, []string{"The dragon wakes"}, view.Params.Beats)
	// 展示层只渲染最近 3 条消息
	assert.LessOrEqual(t, len(view.RecentMessages), 3)
}

func TestGenerationHappyPath(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{resp: &prose.Response{ProseOutput: "Once upon a time the dragon woke and the story ended."}})
	driveToConfirm(t, engine)

	w := submit(t, engine, "yes")
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeSession(t, w)
	assert.Equal(t, "extend", view.Step)
	assert.True(t, view.HasResult)
	assert.False(t, view.Loading)

	w = perform(t, engine, http.MethodGet, "/v1/session/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data dto.GenerationResultResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Contains(t, env.Data.Prose, "Once upon a time")
	assert.Equal(t, 11, env.Data.WordCount)
}

func TestGenerationFailureSurfacesAsBotMessage(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{err: errors.New("connection refused")})
	driveToConfirm(t, engine)

	// 生成失败不是 HTTP 错误，失败以机器人消息呈现
	w := submit(t, engine, "yes")
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeSession(t, w)
	assert.Equal(t, "generate", view.Step)
	assert.False(t, view.HasResult)
	assert.False(t, view.Loading)
	last := view.Messages[len(view.Messages)-1]
	assert.Equal(t, "bot", last.Sender)
	assert.Contains(t, last.Text, "Something went wrong")
}

func TestGetResultBeforeGeneration(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := perform(t, engine, http.MethodGet, "/v1/session/result", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeError(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "3004", resp.Error.ErrorCode)
}

func TestBeatEndpoints(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := perform(t, engine, http.MethodPost, "/v1/session/beats", dto.AddBeatRequest{Text: "out of band beat"})
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeSession(t, w)
	assert.Equal(t, []string{"out of band beat"}, view.Params.Beats)
	// 带外编辑不改变步骤
	assert.Equal(t, "beat", view.Step)

	w = perform(t, engine, http.MethodDelete, "/v1/session/beats/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeSession(t, w).Params.Beats)

	// 越界删除是 no-op，非法序号是 400
	w = perform(t, engine, http.MethodDelete, "/v1/session/beats/9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = perform(t, engine, http.MethodDelete, "/v1/session/beats/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCharacterEndpoints(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := perform(t, engine, http.MethodPost, "/v1/session/characters", dto.AddCharacterRequest{
		Name: "Aria", Description: "a knight",
	})
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeSession(t, w)
	require.Len(t, view.Params.Characters, 1)
	assert.NotEmpty(t, view.Params.Characters[0].ColorTag)

	// 缺少描述被 binding 拦截
	w = perform(t, engine, http.MethodPost, "/v1/session/characters", map[string]string{"name": "Bram"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, engine, http.MethodDelete, "/v1/session/characters/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeSession(t, w).Params.Characters)
}

func TestFieldEditEndpoints(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	// 未进入编辑模式直接提交被拒绝
	w := perform(t, engine, http.MethodPut, "/v1/session/fields/setting", dto.CommitFieldRequest{Value: "castle"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "2003", resp.Error.ErrorCode)

	w = perform(t, engine, http.MethodPost, "/v1/session/fields/setting/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(t, engine, http.MethodPut, "/v1/session/fields/setting", dto.CommitFieldRequest{Value: "castle"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "castle", decodeSession(t, w).Params.Setting)

	// 取消丢弃草稿，不改字段
	w = perform(t, engine, http.MethodPost, "/v1/session/fields/genre/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = perform(t, engine, http.MethodDelete, "/v1/session/fields/genre/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeSession(t, w).Params.Genre)

	// 未知字段
	w = perform(t, engine, http.MethodPost, "/v1/session/fields/title/edit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateControlsEndpoint(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	temp := 0.3
	words := 2000
	w := perform(t, engine, http.MethodPut, "/v1/session/controls", dto.UpdateControlsRequest{
		Temperature: &temp, ApproxWordCount: &words,
	})
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeSession(t, w)
	assert.Equal(t, 0.3, view.Controls.Temperature)
	assert.Equal(t, 2000, view.Controls.ApproxWordCount)

	// 越界被拒绝
	badWords := 99999
	w = perform(t, engine, http.MethodPut, "/v1/session/controls", dto.UpdateControlsRequest{
		Temperature: &temp, ApproxWordCount: &badWords,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "3002", resp.Error.ErrorCode)
}

func TestTogglePresentation(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := perform(t, engine, http.MethodPost, "/v1/session/presentation/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conversation_only", decodeSession(t, w).PresentationMode)

	w = perform(t, engine, http.MethodPost, "/v1/session/presentation/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "both", decodeSession(t, w).PresentationMode)
}

func TestResetEndpoint(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})
	driveToConfirm(t, engine)

	w := perform(t, engine, http.MethodPost, "/v1/session/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeSession(t, w)
	assert.Equal(t, "beat", view.Step)
	assert.Empty(t, view.Params.Beats)
	assert.Equal(t, uint64(1), view.Epoch)
	require.Len(t, view.Messages, 1)
}

func TestHealthEndpoints(t *testing.T) {
	engine := newTestServer(t, &fakeGenerator{})

	w := perform(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(t, engine, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(t, engine, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
