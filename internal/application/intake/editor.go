package intake

import (
	"beats-prose-api/internal/domain/entity"
	apperrors "beats-prose-api/pkg/errors"
)

// Editor 带外参数编辑器：独立于当前步骤对故事参数做增删改。
// 只触碰 StoryParameters 与字段编辑草稿，从不改动步骤或消息日志。
type Editor struct{}

// NewEditor 创建编辑器
func NewEditor() *Editor {
	return &Editor{}
}

// AddBeat 追加节拍；空白输入为 no-op
func (e *Editor) AddBeat(s *entity.Session, text string) bool {
	return s.Params.AddBeat(text)
}

// RemoveBeat 按位置删除节拍；越界静默忽略
func (e *Editor) RemoveBeat(s *entity.Session, index int) bool {
	return s.Params.RemoveBeat(index)
}

// AddCharacter 追加角色；名称或描述为空时 no-op。
// 颜色按调用时累计添加数取模分配。
func (e *Editor) AddCharacter(s *entity.Session, name, description string) bool {
	return s.Params.AddCharacter(name, description)
}

// RemoveCharacter 按位置删除角色；不重排剩余角色颜色
func (e *Editor) RemoveCharacter(s *entity.Session, index int) bool {
	return s.Params.RemoveCharacter(index)
}

// BeginEdit 进入某字段的编辑模式，暂存当前值作为草稿
func (e *Editor) BeginEdit(s *entity.Session, field entity.StoryField) {
	s.FieldEdits[field] = e.fieldValue(s, field)
}

// CommitEdit 提交字段编辑；未进入编辑模式时报错
func (e *Editor) CommitEdit(s *entity.Session, field entity.StoryField, value string) error {
	if _, editing := s.FieldEdits[field]; !editing {
		return apperrors.ErrFieldNotEditable.WithDetail(string(field) + " is not in editing mode")
	}
	e.setFieldValue(s, field, value)
	delete(s.FieldEdits, field)
	return nil
}

// CancelEdit 退出编辑模式并丢弃草稿
func (e *Editor) CancelEdit(s *entity.Session, field entity.StoryField) {
	delete(s.FieldEdits, field)
}

func (e *Editor) fieldValue(s *entity.Session, field entity.StoryField) string {
	switch field {
	case entity.FieldSetting:
		return s.Params.Setting
	case entity.FieldGenre:
		return s.Params.Genre
	case entity.FieldStyle:
		return s.Params.Style
	default:
		return ""
	}
}

func (e *Editor) setFieldValue(s *entity.Session, field entity.StoryField, value string) {
	switch field {
	case entity.FieldSetting:
		s.Params.Setting = value
	case entity.FieldGenre:
		s.Params.Genre = value
	case entity.FieldStyle:
		s.Params.Style = value
	}
}
