package entity

import "strings"

// CharacterPalette 角色颜色标签的固定调色板。
// 颜色在角色创建时按插入序号取模分配，之后永不重排。
var CharacterPalette = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
}

// Character 故事角色
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ColorTag    string `json:"color_tag"`
}

// StoryParameters 故事参数聚合：节拍、角色、背景、体裁、文风。
// 会话存续期间始终可变；状态机与带外编辑器共用同一份实例。
type StoryParameters struct {
	Beats      []string    `json:"beats"`
	Characters []Character `json:"characters"`
	Setting    string      `json:"setting"`
	Genre      string      `json:"genre"`
	Style      string      `json:"style"`

	// colorCursor 记录累计成功添加的角色数，保证颜色分配只依赖插入序号，
	// 删除角色不会影响后续分配
	colorCursor int
}

// NewStoryParameters 创建空的故事参数
func NewStoryParameters() *StoryParameters {
	return &StoryParameters{
		Beats:      make([]string, 0),
		Characters: make([]Character, 0),
	}
}

// AddBeat 追加一个节拍；空白输入为 no-op，允许重复
func (p *StoryParameters) AddBeat(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	p.Beats = append(p.Beats, t)
	return true
}

// RemoveBeat 按位置删除节拍；越界为 no-op
func (p *StoryParameters) RemoveBeat(index int) bool {
	if index < 0 || index >= len(p.Beats) {
		return false
	}
	p.Beats = append(p.Beats[:index], p.Beats[index+1:]...)
	return true
}

// AddCharacter 追加一个角色；名称和描述都必须非空。
// 颜色取 palette[累计添加数 mod len(palette)]
func (p *StoryParameters) AddCharacter(name, description string) bool {
	n := strings.TrimSpace(name)
	d := strings.TrimSpace(description)
	if n == "" || d == "" {
		return false
	}
	p.Characters = append(p.Characters, Character{
		Name:        n,
		Description: d,
		ColorTag:    CharacterPalette[p.colorCursor%len(CharacterPalette)],
	})
	p.colorCursor++
	return true
}

// RemoveCharacter 按位置删除角色；不重排剩余角色的颜色
func (p *StoryParameters) RemoveCharacter(index int) bool {
	if index < 0 || index >= len(p.Characters) {
		return false
	}
	p.Characters = append(p.Characters[:index], p.Characters[index+1:]...)
	return true
}

// Clone 深拷贝，供生成请求在提交时刻冻结参数快照
func (p *StoryParameters) Clone() *StoryParameters {
	out := &StoryParameters{
		Beats:       make([]string, len(p.Beats)),
		Characters:  make([]Character, len(p.Characters)),
		Setting:     p.Setting,
		Genre:       p.Genre,
		Style:       p.Style,
		colorCursor: p.colorCursor,
	}
	copy(out.Beats, p.Beats)
	copy(out.Characters, p.Characters)
	return out
}
