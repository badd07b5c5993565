// Package intake 实现对话式故事参数采集的状态机
package intake

import (
	"fmt"
	"strings"

	"beats-prose-api/internal/domain/entity"
	"beats-prose-api/pkg/metrics"
)

// StartOverCommand 全局重置指令；任意步骤输入该文本都会重置会话
const StartOverCommand = "start over"

// Greeting 重置后的唯一开场消息
const Greeting = "Hi! Let's write a story together. What's the first story beat?"

// Outcome 一次对话提交的处理结果
type Outcome struct {
	// Ignored 空白输入被静默忽略：不追加消息、不改变状态
	Ignored bool
	// Reset 用户输入了 start over，由会话管理器执行原子重置
	Reset bool
	// TriggerGenerate 在 CONFIRM 步骤得到肯定答复，应发起生成
	TriggerGenerate bool
	From entity.Step
	To   entity.Step
}

// Machine 采集状态机；自身无状态，所有变更落在 Session 上
type Machine struct{}

// NewMachine 创建状态机
func NewMachine() *Machine {
	return &Machine{}
}

// PromptFor 返回某步骤的输入占位提示
func (m *Machine) PromptFor(step entity.Step) string {
	switch step {
	case entity.StepBeat:
		return "Enter a story beat"
	case entity.StepBeatConfirm:
		return "Add another beat? (yes/no)"
	case entity.StepCharacterName:
		return "Enter a character name"
	case entity.StepCharacterDescription:
		return "Describe the character"
	case entity.StepCharacters:
		return "Add another character? (yes/no)"
	case entity.StepSetting:
		return "Describe the setting"
	case entity.StepGenre:
		return "Enter a genre"
	case entity.StepStyle:
		return "Enter a style or tone"
	case entity.StepConfirm:
		return "Generate the story? (yes/no)"
	case entity.StepGenerate:
		return "Type 'start over' to reset"
	case entity.StepExtend:
		return "Story complete — type 'start over' to begin a new one"
	default:
		return ""
	}
}

// Seed 为新会话写入开场消息与初始提示
func (m *Machine) Seed(s *entity.Session) {
	s.AppendBot(Greeting)
	s.Prompt = m.PromptFor(entity.StepBeat)
}

// Submit 处理一条对话输入，按转移表推进状态机。
// start over 优先于任何步骤逻辑；空白输入静默忽略。
func (m *Machine) Submit(s *entity.Session, input string) Outcome {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Outcome{Ignored: true, From: s.Step, To: s.Step}
	}
	if strings.EqualFold(trimmed, StartOverCommand) {
		return Outcome{Reset: true, From: s.Step, To: entity.StepBeat}
	}

	out := Outcome{From: s.Step}
	s.AppendUser(trimmed)

	switch s.Step {
	case entity.StepBeat:
		s.Params.AddBeat(trimmed)
		s.Step = entity.StepBeatConfirm
		s.AppendBot("Got it! Would you like to add another beat? (yes/no)")

	case entity.StepBeatConfirm:
		if isAffirmative(trimmed) {
			s.Step = entity.StepBeat
			s.AppendBot("Great — what happens next?")
		} else {
			s.Step = entity.StepCharacterName
			s.AppendBot("Time to meet your characters. What's the first character's name?")
		}

	case entity.StepCharacterName:
		s.PendingCharacterName = trimmed
		s.Step = entity.StepCharacterDescription
		s.AppendBot(fmt.Sprintf("Tell me about %s. How would you describe them?", trimmed))

	case entity.StepCharacterDescription:
		s.Params.AddCharacter(s.PendingCharacterName, trimmed)
		s.PendingCharacterName = ""
		s.Step = entity.StepCharacters
		s.AppendBot("Character added. Would you like to add another one? (yes/no)")

	case entity.StepCharacters:
		if isAffirmative(trimmed) {
			s.Step = entity.StepCharacterName
			s.AppendBot("What's the next character's name?")
		} else {
			s.Step = entity.StepSetting
			s.AppendBot("Where does the story take place? Describe the setting.")
		}

	case entity.StepSetting:
		s.Params.Setting = trimmed
		s.Step = entity.StepGenre
		s.AppendBot("What genre should the story be?")

	case entity.StepGenre:
		s.Params.Genre = trimmed
		s.Step = entity.StepStyle
		s.AppendBot("And what style or tone should I aim for?")

	case entity.StepStyle:
		s.Params.Style = trimmed
		s.Step = entity.StepConfirm
		s.AppendBot(summarize(s.Params))

	case entity.StepConfirm:
		if s.Cancelled {
			// 拒绝生成后 CONFIRM 不再推进，仅重置可恢复
			s.AppendBot("Type 'start over' to begin a new story.")
			break
		}
		if isAffirmative(trimmed) {
			s.Step = entity.StepGenerate
			s.AppendBot("Alright — generating your story now. Hang tight, this can take a while.")
			out.TriggerGenerate = true
		} else {
			s.Cancelled = true
			s.AppendBot("No problem, nothing was generated. Type 'start over' whenever you want to try again.")
		}

	case entity.StepGenerate, entity.StepExtend:
		// 终态：除 start over 外没有定义转移
		s.AppendBot("Type 'start over' to begin a new story.")
	}

	out.To = s.Step
	s.Prompt = m.PromptFor(s.Step)
	if out.From != out.To {
		metrics.IntakeTransitionsTotal.WithLabelValues(string(out.From), string(out.To)).Inc()
	}
	return out
}

// isAffirmative 判定肯定答复；转移表按 yes 判定，忽略大小写
func isAffirmative(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "yes")
}

// summarize 组装 STYLE -> CONFIRM 时的参数总结消息
func summarize(p *entity.StoryParameters) string {
	var b strings.Builder
	b.WriteString("Here's what we have so far:\n")
	b.WriteString(fmt.Sprintf("Beats (%d):\n", len(p.Beats)))
	for i, beat := range p.Beats {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, beat))
	}
	b.WriteString(fmt.Sprintf("Characters (%d):\n", len(p.Characters)))
	for _, c := range p.Characters {
		b.WriteString(fmt.Sprintf("  - %s: %s\n", c.Name, c.Description))
	}
	b.WriteString(fmt.Sprintf("Setting: %s\n", p.Setting))
	b.WriteString(fmt.Sprintf("Genre: %s\n", p.Genre))
	b.WriteString(fmt.Sprintf("Style: %s\n\n", p.Style))
	b.WriteString("Shall I generate the story now? (yes/no)")
	return b.String()
}
