package service

import (
	"limit_backend/internal/model"
)

// SettingsService 全局键值设置，目前只有主题
type SettingsService struct {
	Settings SettingStore
}

func NewSettingsService(settings SettingStore) *SettingsService {
	return &SettingsService{Settings: settings}
}

func (s *SettingsService) Theme() (string, error) {
	v, err := s.Settings.Get(model.SettingTheme)
	if err != nil {
		return "", err
	}
	if v == "" {
		return model.DefaultTheme, nil
	}
	return v, nil
}

func (s *SettingsService) SetTheme(theme string) error {
	return s.Settings.Put(model.SettingTheme, theme)
}
