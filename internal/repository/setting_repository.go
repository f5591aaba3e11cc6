package repository

import (
	"errors"
	"limit_backend/internal/model"

	"gorm.io/gorm"
)

type SettingRepository struct {
	DB *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{DB: db}
}

func (r *SettingRepository) Get(key string) (string, error) {
	var s model.GlobalSetting
	err := r.DB.First(&s, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

func (r *SettingRepository) Put(key, value string) error {
	return r.DB.Save(&model.GlobalSetting{Key: key, Value: value}).Error
}
