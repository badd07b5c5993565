package entity

import (
	"fmt"
	"time"
)

// 生成控制参数的取值范围
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinWordCount   = 1000
	MaxWordCount   = 2500
)

// GenerationControls 生成控制参数；独立于故事参数，
// 生成前随时可改，提交生成时冻结进请求
type GenerationControls struct {
	Temperature     float64 `json:"temperature"`
	ApproxWordCount int     `json:"approx_word_count"`
}

// Validate 校验控制参数取值范围
func (c GenerationControls) Validate() error {
	if c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return fmt.Errorf("temperature %.2f out of range [%.1f, %.1f]", c.Temperature, MinTemperature, MaxTemperature)
	}
	if c.ApproxWordCount < MinWordCount || c.ApproxWordCount > MaxWordCount {
		return fmt.Errorf("approx_word_count %d out of range [%d, %d]", c.ApproxWordCount, MinWordCount, MaxWordCount)
	}
	return nil
}

// GenerationResult 生成结果；每个会话至多持有一个
type GenerationResult struct {
	GenerationID string    `json:"generation_id"`
	Prose        string    `json:"prose"`
	WordCount    int       `json:"word_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}
