package service

import "limit_backend/internal/model"

// 服务层依赖的存储契约。internal/repository 下的 gorm 实现满足这些接口，
// 测试使用内存实现。

type QuestionStore interface {
	Create(q *model.Question) error
	FindByID(id uint) (*model.Question, error)
	FindAll() ([]model.Question, error)
	FindByTag(tag string) ([]model.Question, error)
	Save(q *model.Question) error
	Delete(id uint) error
	Count() (int64, error)
	ForEach(fn func(q *model.Question) error) error
}

type ModuleStore interface {
	Create(m *model.Module) error
	FindByID(id uint) (*model.Module, error)
	FindAll() ([]model.Module, error)
	Save(m *model.Module) error
	Delete(id uint) error
	Count() (int64, error)
}

type UserStateStore interface {
	Get(moduleID uint) (*model.UserState, error)
	Save(s *model.UserState) error
	Delete(moduleID uint) error
	FindAll() ([]model.UserState, error)
}

type SettingStore interface {
	Get(key string) (string, error)
	Put(key, value string) error
}
