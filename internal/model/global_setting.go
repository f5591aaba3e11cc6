package model

// GlobalSetting 全局键值设置（如主题），对应原应用的 globalState 集合。
type GlobalSetting struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (GlobalSetting) TableName() string {
	return "global_state"
}

const (
	SettingTheme = "theme"

	DefaultTheme = "system"
)
