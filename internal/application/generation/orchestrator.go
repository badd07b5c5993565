// Package generation 编排一次完整的生成请求/响应周期
package generation

import (
	"context"
	"strings"
	"time"

	"beats-prose-api/internal/application/session"
	"beats-prose-api/internal/domain/entity"
	"beats-prose-api/internal/infrastructure/prose"
	apperrors "beats-prose-api/pkg/errors"
	"beats-prose-api/pkg/logger"
	"beats-prose-api/pkg/metrics"
	"beats-prose-api/pkg/tracer"

	"go.opentelemetry.io/otel/attribute"
)

// Orchestrator 生成编排器：把冻结的任务发给生成服务，
// 并将结果（或失败）合并回会话状态。
type Orchestrator struct {
	sessions *session.Manager
	client   prose.Generator
}

// NewOrchestrator 创建生成编排器
func NewOrchestrator(sessions *session.Manager, client prose.Generator) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		client:   client,
	}
}

// Execute 执行一次生成任务。调用方（HTTP 处理器）同步等待；
// 在途期间会话处于加载态，其它提交与编辑被拒绝。
// 响应到达时若会话已被重置，结果被丢弃且不视为错误。
func (o *Orchestrator) Execute(ctx context.Context, job *session.GenerationJob) error {
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, job.GenerationID)
	ctx, span := tracer.Start(ctx, "generation.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.id", job.GenerationID),
		attribute.Int("generation.beats", len(job.Params.Beats)),
		attribute.Int("generation.approx_word_count", job.Controls.ApproxWordCount),
	)

	req := prose.NewRequest(job.Params, job.Controls)

	start := time.Now()
	resp, err := o.client.Generate(ctx, req)
	duration := time.Since(start)

	var result *entity.GenerationResult
	status := "failure"
	if err == nil {
		status = "success"
		result = &entity.GenerationResult{
			GenerationID: job.GenerationID,
			Prose:        resp.ProseOutput,
			WordCount:    countWords(resp.ProseOutput),
			GeneratedAt:  time.Now(),
		}
	}

	discarded := o.sessions.Reconcile(ctx, job, result, err)
	if discarded {
		status = "stale"
	}
	metrics.GenerationTotal.WithLabelValues(status).Inc()
	metrics.GenerationDuration.WithLabelValues(status).Observe(duration.Seconds())

	if discarded {
		return nil
	}
	if err != nil {
		logger.Error(ctx, "prose generation failed", err, "duration_ms", duration.Milliseconds())
		return apperrors.ErrGenerationFailed.WithError(err)
	}

	metrics.ProseWordCount.Observe(float64(result.WordCount))
	logWordCountDeviation(ctx, result.WordCount, job.Controls.ApproxWordCount)
	logger.Info(ctx, "prose generation completed",
		"duration_ms", duration.Milliseconds(),
		"word_count", result.WordCount,
	)
	return nil
}

// countWords 统计生成文本的词数
func countWords(text string) int {
	return len(strings.Fields(text))
}

// logWordCountDeviation 生成服务承诺目标字数 ±10%，偏差超限时告警
func logWordCountDeviation(ctx context.Context, got, want int) {
	if want <= 0 {
		return
	}
	lower := float64(want) * 0.9
	upper := float64(want) * 1.1
	if float64(got) < lower || float64(got) > upper {
		logger.Warn(ctx, "prose length deviates from target",
			"word_count", got,
			"approx_word_count", want,
		)
	}
}
