// Package prose 提供外部散文生成服务客户端
package prose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"beats-prose-api/internal/config"
	"beats-prose-api/internal/domain/entity"
)

// Request 生成请求载荷；字段与生成服务的契约一一对应
type Request struct {
	Beats           []string       `json:"beats"`
	Characters      []CharacterRef `json:"characters"`
	Setting         string         `json:"setting"`
	Genre           string         `json:"genre"`
	Style           string         `json:"style"`
	Temperature     float64        `json:"temperature"`
	ApproxWordCount int            `json:"approx_word_count"`
}

// CharacterRef 请求中的角色引用；颜色标签是展示层概念，不随请求发送
type CharacterRef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Response 生成响应载荷
type Response struct {
	ProseOutput string `json:"prose_output"`
}

// NewRequest 由参数快照与控制参数构造请求。
// 不要求 beats 非空——是否拒绝空参数由生成服务决定。
func NewRequest(params *entity.StoryParameters, controls entity.GenerationControls) *Request {
	chars := make([]CharacterRef, 0, len(params.Characters))
	for _, c := range params.Characters {
		chars = append(chars, CharacterRef{Name: c.Name, Description: c.Description})
	}
	return &Request{
		Beats:           append([]string(nil), params.Beats...),
		Characters:      chars,
		Setting:         params.Setting,
		Genre:           params.Genre,
		Style:           params.Style,
		Temperature:     controls.Temperature,
		ApproxWordCount: controls.ApproxWordCount,
	}
}

// Validate 发送前校验数值范围
func (r *Request) Validate() error {
	return entity.GenerationControls{
		Temperature:     r.Temperature,
		ApproxWordCount: r.ApproxWordCount,
	}.Validate()
}

// Generator 生成服务端口；编排器依赖此接口，便于测试替身
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Client 生成服务 HTTP 客户端
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient 创建生成服务客户端
func NewClient(cfg *config.ProseServiceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	path := cfg.Path
	if path == "" {
		path = "/generate-prose"
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + path,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate 发起一次生成调用；非 2xx 状态码或响应体不可解析均视为失败
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prose request: %w", err)
	}

	if _, err := url.Parse(c.endpoint); err != nil || c.endpoint == "" {
		return nil, fmt.Errorf("invalid prose endpoint %q", c.endpoint)
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prose request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create prose request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prose request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("prose request failed: status=%d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode prose response: %w", err)
	}
	if strings.TrimSpace(resp.ProseOutput) == "" {
		return nil, fmt.Errorf("prose response missing prose_output")
	}
	return &resp, nil
}
