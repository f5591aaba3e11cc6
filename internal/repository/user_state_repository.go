package repository

import (
	"errors"
	"limit_backend/internal/model"

	"gorm.io/gorm"
)

type UserStateRepository struct {
	DB *gorm.DB
}

func NewUserStateRepository(db *gorm.DB) *UserStateRepository {
	return &UserStateRepository{DB: db}
}

// Get 读取某模块的进度记录；不存在时返回 (nil, nil)，由调用方回退到空记录
func (r *UserStateRepository) Get(moduleID uint) (*model.UserState, error) {
	var s model.UserState
	err := r.DB.First(&s, "module_id = ?", moduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save 整条覆盖写入（按主键 upsert）
func (r *UserStateRepository) Save(s *model.UserState) error {
	return r.DB.Save(s).Error
}

func (r *UserStateRepository) Delete(moduleID uint) error {
	return r.DB.Delete(&model.UserState{}, "module_id = ?", moduleID).Error
}

func (r *UserStateRepository) FindAll() ([]model.UserState, error) {
	var states []model.UserState
	err := r.DB.Find(&states).Error
	return states, err
}
