package service

import (
	"fmt"
	"strings"
	"time"

	"limit_backend/internal/model"
	"limit_backend/internal/util"
)

// ModuleService 模块（quiz/exam）的管理面操作
type ModuleService struct {
	Modules   ModuleStore
	Questions QuestionStore
	States    UserStateStore
}

func NewModuleService(modules ModuleStore, questions QuestionStore, states UserStateStore) *ModuleService {
	return &ModuleService{Modules: modules, Questions: questions, States: states}
}

// ManageEntry 管理端列表条目，带进度与计划信息
type ManageEntry struct {
	model.Module
	DoneCount int  `json:"doneCount"`
	Completed bool `json:"completed"`
}

// Validate 考试模块必须带完整有效的时间计划，quiz 忽略这些字段
func (s *ModuleService) Validate(m *model.Module) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("module name is required")
	}
	switch m.Type {
	case model.QuizModule:
		return nil
	case model.ExamModule:
		if _, err := time.ParseInLocation(model.ExamDateLayout, m.ExamDate, time.Local); err != nil {
			return fmt.Errorf("invalid exam date %q: %w", m.ExamDate, err)
		}
		if _, err := time.ParseInLocation(model.ExamTimeLayout, m.ExamTime, time.Local); err != nil {
			return fmt.Errorf("invalid exam time %q: %w", m.ExamTime, err)
		}
		if m.ExamDuration <= 0 {
			return fmt.Errorf("exam duration must be positive")
		}
		return nil
	default:
		return fmt.Errorf("unknown module type %q", m.Type)
	}
}

func (s *ModuleService) Create(m *model.Module) error {
	if err := s.Validate(m); err != nil {
		return err
	}
	return s.Modules.Create(m)
}

func (s *ModuleService) Get(id uint) (*model.Module, error) {
	m, err := s.Modules.FindByID(id)
	if err != nil || m == nil {
		return nil, util.ErrModuleNotFound
	}
	return m, nil
}

func (s *ModuleService) Update(m *model.Module) error {
	if err := s.Validate(m); err != nil {
		return err
	}
	existing, err := s.Modules.FindByID(m.ID)
	if err != nil || existing == nil {
		return util.ErrModuleNotFound
	}
	return s.Modules.Save(m)
}

// Delete 连同进度记录一起删除
func (s *ModuleService) Delete(id uint) error {
	existing, err := s.Modules.FindByID(id)
	if err != nil || existing == nil {
		return util.ErrModuleNotFound
	}
	if err := s.Modules.Delete(id); err != nil {
		return err
	}
	return s.States.Delete(id)
}

func (s *ModuleService) ToggleLock(id uint) (*model.Module, error) {
	m, err := s.Modules.FindByID(id)
	if err != nil || m == nil {
		return nil, util.ErrModuleNotFound
	}
	m.Locked = !m.Locked
	if err := s.Modules.Save(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ManageList 管理端看全部模块，locked/hidden 也在内
func (s *ModuleService) ManageList() ([]ManageEntry, error) {
	modules, err := s.Modules.FindAll()
	if err != nil {
		return nil, err
	}
	entries := make([]ManageEntry, 0, len(modules))
	for _, m := range modules {
		entry := ManageEntry{Module: m}
		if state, err := s.States.Get(m.ID); err == nil && state != nil {
			entry.DoneCount = len(state.Done)
			entry.Completed = state.Completed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListQuestions 按模块当前顺序展开题目全文，悬空引用静默丢弃
func (s *ModuleService) ListQuestions(id uint) ([]model.Question, error) {
	m, err := s.Modules.FindByID(id)
	if err != nil || m == nil {
		return nil, util.ErrModuleNotFound
	}
	out := make([]model.Question, 0, len(m.Questions))
	for _, qid := range m.Questions {
		q, err := s.Questions.FindByID(qid)
		if err != nil || q == nil {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}
