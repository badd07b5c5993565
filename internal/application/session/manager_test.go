package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"beats-prose-api/internal/config"
	"beats-prose-api/internal/domain/entity"
	apperrors "beats-prose-api/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Generation: config.GenerationConfig{
			DefaultTemperature: 0.7,
			DefaultWordCount:   1500,
		},
	}
}

// driveToJob 走完整个采集流程并确认生成，返回冻结的任务
func driveToJob(t *testing.T, m *Manager) *GenerationJob {
	t.Helper()
	ctx := context.Background()
	for _, input := range []string{"beat one", "no", "Aria", "a knight", "no", "castle", "fantasy", "dark"} {
		_, job, err := m.Submit(ctx, input)
		require.NoError(t, err)
		require.Nil(t, job)
	}
	view, job, err := m.Submit(ctx, "yes")
	require.NoError(t, err)
	require.NotNil(t, job)
	require.True(t, view.Loading)
	return job
}

func TestManagerInitialSession(t *testing.T) {
	m := NewManager(testConfig())
	view := m.View()

	assert.Equal(t, entity.StepBeat, view.Step)
	assert.Equal(t, 0.7, view.Controls.Temperature)
	assert.Equal(t, 1500, view.Controls.ApproxWordCount)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, entity.SenderBot, view.Messages[0].Sender)
}

func TestManagerSubmitTriggersGeneration(t *testing.T) {
	m := NewManager(testConfig())
	job := driveToJob(t, m)

	assert.NotEmpty(t, job.GenerationID)
	assert.Equal(t, uint64(0), job.Epoch)
	assert.Equal(t, []string{"beat one"}, job.Params.Beats)
	require.Len(t, job.Params.Characters, 1)
	assert.Equal(t, "Aria", job.Params.Characters[0].Name)
	assert.Equal(t, 1500, job.Controls.ApproxWordCount)

	view := m.View()
	assert.True(t, view.Loading)
	assert.Equal(t, entity.StepGenerate, view.Step)
}

func TestManagerBusyGate(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig())
	driveToJob(t, m)

	// 加载中拒绝提交与编辑
	_, _, err := m.Submit(ctx, "hello")
	assert.ErrorIs(t, err, apperrors.ErrSessionBusy)

	_, err = m.AddBeat("late beat")
	assert.ErrorIs(t, err, apperrors.ErrSessionBusy)

	_, err = m.UpdateControls(entity.GenerationControls{Temperature: 0.5, ApproxWordCount: 2000})
	assert.ErrorIs(t, err, apperrors.ErrSessionBusy)

	// 展示开关与重置不受加载态限制
	view := m.TogglePresentation()
	assert.True(t, view.PanelToggled)

	view = m.Reset(ctx)
	assert.Equal(t, entity.StepBeat, view.Step)
	assert.False(t, view.Loading)
}

func TestManagerResetIncrementsEpoch(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig())

	view := m.Reset(ctx)
	assert.Equal(t, uint64(1), view.Epoch)

	// start over 输入与显式重置等效
	view, job, err := m.Submit(ctx, "start over")
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Equal(t, uint64(2), view.Epoch)
	assert.Equal(t, entity.StepBeat, view.Step)
	require.Len(t, view.Messages, 1, "重置后只剩开场消息")
}

func TestManagerResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig())

	_, err := m.UpdateControls(entity.GenerationControls{Temperature: 0.2, ApproxWordCount: 2000})
	require.NoError(t, err)
	_, err = m.AddBeat("a beat")
	require.NoError(t, err)

	view := m.Reset(ctx)
	assert.Equal(t, 0.7, view.Controls.Temperature)
	assert.Equal(t, 1500, view.Controls.ApproxWordCount)
	assert.Empty(t, view.Params.Beats)
}

func TestManagerReconcileSuccess(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig())
	job := driveToJob(t, m)

	m.TogglePresentation()

	result := &entity.GenerationResult{
		GenerationID: job.GenerationID,
		Prose:        "Once upon a time...",
		WordCount:    4,
		GeneratedAt:  time.Now(),
	}
	discarded := m.Reconcile(ctx, job, result, nil)
	assert.False(t, discarded)

	view := m.View()
	assert.False(t, view.Loading)
	assert.Equal(t, entity.StepExtend, view.Step)
	assert.True(t, view.HasResult())
	assert.False(t, view.PanelToggled, "新结果产生时展示开关归位")

	got, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time...", got.Prose)
}

func TestManagerReconcileFailure(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig())
	job := driveToJob(t, m)

	discarded := m.Reconcile(ctx, job, nil, errors.New("upstream exploded"))
	assert.False(t, discarded)

	view := m.View()
	assert.False(t, view.Loading)
	assert.Equal(t, entity.StepGenerate, view.Step)
	assert.False(t, view.HasResult())

	// 失败以机器人消息呈现
	last := view.Messages[len(view.Messages)-1]
	assert.Equal(t, entity.SenderBot, last.Sender)
	assert.Contains(t, last.Text, "Something went wrong")

	_, err := m.Result()
	assert.ErrorIs(t, err, apperrors.ErrResultNotReady)
}

func TestManagerReconcileDiscardsStaleResponse(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig())
	job := driveToJob(t, m)

	// 响应在途期间用户重置了会话
	m.Reset(ctx)

	result := &entity.GenerationResult{GenerationID: job.GenerationID, Prose: "late prose"}
	discarded := m.Reconcile(ctx, job, result, nil)
	assert.True(t, discarded)

	view := m.View()
	assert.Equal(t, entity.StepBeat, view.Step)
	assert.False(t, view.HasResult(), "迟到的结果不得污染新会话")
	assert.False(t, view.Loading)
}

func TestManagerUpdateControlsValidation(t *testing.T) {
	m := NewManager(testConfig())

	tests := []struct {
		name     string
		controls entity.GenerationControls
		wantErr  bool
	}{
		{"范围内", entity.GenerationControls{Temperature: 0.5, ApproxWordCount: 2000}, false},
		{"下边界", entity.GenerationControls{Temperature: 0.0, ApproxWordCount: 1000}, false},
		{"上边界", entity.GenerationControls{Temperature: 1.0, ApproxWordCount: 2500}, false},
		{"温度越界", entity.GenerationControls{Temperature: 1.5, ApproxWordCount: 1500}, true},
		{"字数过低", entity.GenerationControls{Temperature: 0.5, ApproxWordCount: 500}, true},
		{"字数过高", entity.GenerationControls{Temperature: 0.5, ApproxWordCount: 3000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := m.UpdateControls(tt.controls)
			if tt.wantErr {
				require.Error(t, err)
				appErr := apperrors.AsAppError(err)
				assert.Equal(t, apperrors.CodeControlsOutOfRange, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.controls, view.Controls)
		})
	}
}

func TestManagerSnapshotIsolation(t *testing.T) {
	m := NewManager(testConfig())
	_, err := m.AddBeat("original")
	require.NoError(t, err)

	view := m.View()
	view.Params.Beats[0] = "mutated"
	view.Params.AddBeat("extra")

	fresh := m.View()
	assert.Equal(t, []string{"original"}, fresh.Params.Beats)
}
