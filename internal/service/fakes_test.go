package service

import (
	"errors"
	"strings"
	"time"

	"limit_backend/internal/model"

	"go.uber.org/zap"

	"limit_backend/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// 内存版存储实现，测试里代替 gorm 仓库

type memQuestionStore struct {
	seq   uint
	items map[uint]*model.Question
}

func newMemQuestionStore() *memQuestionStore {
	return &memQuestionStore{items: map[uint]*model.Question{}}
}

func (s *memQuestionStore) Create(q *model.Question) error {
	if q.ID == 0 {
		s.seq++
		q.ID = s.seq
	} else if q.ID > s.seq {
		s.seq = q.ID
	}
	cp := *q
	s.items[q.ID] = &cp
	return nil
}

func (s *memQuestionStore) FindByID(id uint) (*model.Question, error) {
	q, ok := s.items[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *q
	return &cp, nil
}

func (s *memQuestionStore) FindAll() ([]model.Question, error) {
	out := make([]model.Question, 0, len(s.items))
	for _, q := range s.items {
		out = append(out, *q)
	}
	return out, nil
}

func (s *memQuestionStore) FindByTag(tag string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range s.items {
		for _, t := range q.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, *q)
				break
			}
		}
	}
	return out, nil
}

func (s *memQuestionStore) Save(q *model.Question) error {
	cp := *q
	s.items[q.ID] = &cp
	if q.ID > s.seq {
		s.seq = q.ID
	}
	return nil
}

func (s *memQuestionStore) Delete(id uint) error {
	delete(s.items, id)
	return nil
}

func (s *memQuestionStore) Count() (int64, error) {
	return int64(len(s.items)), nil
}

func (s *memQuestionStore) ForEach(fn func(q *model.Question) error) error {
	for _, q := range s.items {
		cp := *q
		if err := fn(&cp); err != nil {
			return err
		}
	}
	return nil
}

type memModuleStore struct {
	seq   uint
	items map[uint]*model.Module
}

func newMemModuleStore() *memModuleStore {
	return &memModuleStore{items: map[uint]*model.Module{}}
}

func (s *memModuleStore) Create(m *model.Module) error {
	if m.ID == 0 {
		s.seq++
		m.ID = s.seq
	} else if m.ID > s.seq {
		s.seq = m.ID
	}
	cp := *m
	s.items[m.ID] = &cp
	return nil
}

func (s *memModuleStore) FindByID(id uint) (*model.Module, error) {
	m, ok := s.items[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := *m
	return &cp, nil
}

func (s *memModuleStore) FindAll() ([]model.Module, error) {
	out := make([]model.Module, 0, len(s.items))
	for _, m := range s.items {
		out = append(out, *m)
	}
	return out, nil
}

func (s *memModuleStore) Save(m *model.Module) error {
	cp := *m
	s.items[m.ID] = &cp
	if m.ID > s.seq {
		s.seq = m.ID
	}
	return nil
}

func (s *memModuleStore) Delete(id uint) error {
	delete(s.items, id)
	return nil
}

func (s *memModuleStore) Count() (int64, error) {
	return int64(len(s.items)), nil
}

type memStateStore struct {
	items map[uint]*model.UserState
	// 写失败注入
	failSave bool
	saves    int
}

func newMemStateStore() *memStateStore {
	return &memStateStore{items: map[uint]*model.UserState{}}
}

func (s *memStateStore) Get(moduleID uint) (*model.UserState, error) {
	st, ok := s.items[moduleID]
	if !ok {
		return nil, nil
	}
	cp := *st
	cp.Done = append([]model.AnswerRecord(nil), st.Done...)
	return &cp, nil
}

func (s *memStateStore) Save(st *model.UserState) error {
	s.saves++
	if s.failSave {
		return errors.New("storage write failed")
	}
	cp := *st
	cp.Done = append([]model.AnswerRecord(nil), st.Done...)
	s.items[st.ModuleID] = &cp
	return nil
}

func (s *memStateStore) Delete(moduleID uint) error {
	delete(s.items, moduleID)
	return nil
}

func (s *memStateStore) FindAll() ([]model.UserState, error) {
	out := make([]model.UserState, 0, len(s.items))
	for _, st := range s.items {
		out = append(out, *st)
	}
	return out, nil
}

type memSettingStore struct {
	items map[string]string
}

func newMemSettingStore() *memSettingStore {
	return &memSettingStore{items: map[string]string{}}
}

func (s *memSettingStore) Get(key string) (string, error) {
	return s.items[key], nil
}

func (s *memSettingStore) Put(key, value string) error {
	s.items[key] = value
	return nil
}

// fixedClock 测试用可拨动的时钟
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
