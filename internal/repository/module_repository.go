package repository

import (
	"limit_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(m *model.Module) error {
	return r.DB.Create(m).Error
}

func (r *ModuleRepository) FindByID(id uint) (*model.Module, error) {
	var m model.Module
	if err := r.DB.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ModuleRepository) FindAll() ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Order("id desc").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) Save(m *model.Module) error {
	return r.DB.Save(m).Error
}

func (r *ModuleRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Module{}, id).Error
}

func (r *ModuleRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Module{}).Count(&count).Error
	return count, err
}
