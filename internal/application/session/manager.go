// Package session 管理唯一的会话聚合及其受控变更入口
package session

import (
	"context"
	"sync"
	"time"

	"beats-prose-api/internal/application/intake"
	"beats-prose-api/internal/config"
	"beats-prose-api/internal/domain/entity"
	apperrors "beats-prose-api/pkg/errors"
	"beats-prose-api/pkg/logger"
	"beats-prose-api/pkg/metrics"

	"github.com/google/uuid"
)

// GenerationJob 在 CONFIRM 确认时刻冻结的生成任务。
// Epoch 用于在响应到达时识别任务是否已被重置取代。
type GenerationJob struct {
	GenerationID string
	Epoch        uint64
	Params       *entity.StoryParameters
	Controls     entity.GenerationControls
}

// Manager 会话管理器：持有唯一会话，所有变更经由它串行化。
// 设计上只有一个逻辑执行线程，但 HTTP 层天然并发，因此用互斥锁兜底。
type Manager struct {
	mu       sync.Mutex
	session  *entity.Session
	defaults entity.GenerationControls
	machine  *intake.Machine
	editor   *intake.Editor
}

// NewManager 创建会话管理器并初始化首个会话
func NewManager(cfg *config.Config) *Manager {
	defaults := entity.GenerationControls{
		Temperature:     cfg.Generation.DefaultTemperature,
		ApproxWordCount: cfg.Generation.DefaultWordCount,
	}
	m := &Manager{
		defaults: defaults,
		machine:  intake.NewMachine(),
		editor:   intake.NewEditor(),
	}
	m.session = entity.NewSession(defaults)
	m.machine.Seed(m.session)
	return m
}

// View 返回会话快照
func (m *Manager) View() entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Submit 处理一条对话输入。
// 生成请求在途时拒绝提交；返回的 job 非空时由编排器发起生成。
func (m *Manager) Submit(ctx context.Context, text string) (entity.Session, *GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Loading {
		return entity.Session{}, nil, apperrors.ErrSessionBusy
	}

	out := m.machine.Submit(m.session, text)
	if out.Reset {
		m.resetLocked(ctx)
		return m.snapshotLocked(), nil, nil
	}

	var job *GenerationJob
	if out.TriggerGenerate {
		m.session.Loading = true
		job = &GenerationJob{
			GenerationID: uuid.New().String(),
			Epoch:        m.session.Epoch,
			Params:       m.session.Params.Clone(),
			Controls:     m.session.Controls,
		}
		logger.Info(ctx, "generation triggered",
			"generation_id", job.GenerationID,
			"beats", len(job.Params.Beats),
			"characters", len(job.Params.Characters),
		)
	}
	return m.snapshotLocked(), job, nil
}

// Reset 重置会话；等价于输入 start over，加载中也允许执行
func (m *Manager) Reset(ctx context.Context) entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(ctx)
	return m.snapshotLocked()
}

// Reconcile 将生成结果合并回会话。
// 任务纪元与当前会话不一致说明会话已被重置，迟到的响应被丢弃。
// 返回值表示响应是否被丢弃。
func (m *Manager) Reconcile(ctx context.Context, job *GenerationJob, result *entity.GenerationResult, genErr error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Epoch != job.Epoch {
		logger.Warn(ctx, "discarding stale generation response",
			"generation_id", job.GenerationID,
			"job_epoch", job.Epoch,
			"session_epoch", m.session.Epoch,
		)
		return true
	}

	m.session.Loading = false

	if genErr != nil {
		m.session.AppendBot("Something went wrong while generating your story. You can wait a moment and confirm again, or type 'start over' to reset.")
		m.session.Prompt = m.machine.PromptFor(m.session.Step)
		return false
	}

	m.session.Result = result
	m.session.Step = entity.StepExtend
	m.session.Prompt = m.machine.PromptFor(entity.StepExtend)
	m.session.PanelToggled = false
	m.session.AppendBot("Your story is ready! Open the story panel to read it.")
	return false
}

// AddBeat 带外追加节拍
func (m *Manager) AddBeat(text string) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		m.editor.AddBeat(s, text)
		return nil
	})
}

// RemoveBeat 带外删除节拍
func (m *Manager) RemoveBeat(index int) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		m.editor.RemoveBeat(s, index)
		return nil
	})
}

// AddCharacter 带外追加角色
func (m *Manager) AddCharacter(name, description string) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		m.editor.AddCharacter(s, name, description)
		return nil
	})
}

// RemoveCharacter 带外删除角色
func (m *Manager) RemoveCharacter(index int) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		m.editor.RemoveCharacter(s, index)
		return nil
	})
}

// BeginEdit 进入字段编辑模式
func (m *Manager) BeginEdit(field entity.StoryField) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		m.editor.BeginEdit(s, field)
		return nil
	})
}

// CommitEdit 提交字段编辑
func (m *Manager) CommitEdit(field entity.StoryField, value string) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		return m.editor.CommitEdit(s, field, value)
	})
}

// CancelEdit 取消字段编辑并丢弃草稿
func (m *Manager) CancelEdit(field entity.StoryField) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		m.editor.CancelEdit(s, field)
		return nil
	})
}

// UpdateControls 更新生成控制参数；越界直接拒绝
func (m *Manager) UpdateControls(controls entity.GenerationControls) (entity.Session, error) {
	return m.edit(func(s *entity.Session) error {
		if err := controls.Validate(); err != nil {
			return apperrors.ErrControlsOutOfRange.WithDetail(err.Error())
		}
		s.Controls = controls
		s.UpdatedAt = time.Now()
		return nil
	})
}

// TogglePresentation 翻转展示开关；任何时刻有效，不受加载态限制
func (m *Manager) TogglePresentation() entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.PanelToggled = !m.session.PanelToggled
	m.session.UpdatedAt = time.Now()
	return m.snapshotLocked()
}

// Result 返回当前生成结果
func (m *Manager) Result() (*entity.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Result == nil {
		return nil, apperrors.ErrResultNotReady
	}
	r := *m.session.Result
	return &r, nil
}

// edit 在加载门禁内执行一次编辑器变更
func (m *Manager) edit(fn func(s *entity.Session) error) (entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Loading {
		return entity.Session{}, apperrors.ErrSessionBusy
	}
	if err := fn(m.session); err != nil {
		return entity.Session{}, err
	}
	return m.snapshotLocked(), nil
}

// resetLocked 原子重建会话；纪元递增，使在途生成的响应失效
func (m *Manager) resetLocked(ctx context.Context) {
	epoch := m.session.Epoch + 1
	m.session = entity.NewSession(m.defaults)
	m.session.Epoch = epoch
	m.machine.Seed(m.session)
	metrics.SessionResetsTotal.Inc()
	logger.Info(ctx, "session reset", "epoch", epoch)
}

// snapshotLocked 复制会话供外部只读使用
func (m *Manager) snapshotLocked() entity.Session {
	s := *m.session
	s.Messages = append([]entity.Message(nil), m.session.Messages...)
	s.Params = m.session.Params.Clone()
	if m.session.Result != nil {
		r := *m.session.Result
		s.Result = &r
	}
	edits := make(map[entity.StoryField]string, len(m.session.FieldEdits))
	for k, v := range m.session.FieldEdits {
		edits[k] = v
	}
	s.FieldEdits = edits
	return s
}
