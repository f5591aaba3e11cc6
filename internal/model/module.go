package model

import (
	"time"

	"gorm.io/gorm"
)

type ModuleType string

const (
	QuizModule ModuleType = "quiz"
	ExamModule ModuleType = "exam"
)

const (
	ExamDateLayout = "2006-01-02"
	ExamTimeLayout = "15:04"
)

// Module 一组按序引用的题目，以自由练习（quiz）或限时考试（exam）形式交付。
// Questions 只存题目 id，题目被删除后留下的悬空引用由答题会话跳过。
type Module struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	Questions []uint `gorm:"serializer:json" json:"questions"`
	Shuffle   bool   `gorm:"default:false" json:"shuffle"`

	// locked 将模块从答题端列表中整体移除；hidden 额外用于考试复查窗口结束后的隐藏
	Locked bool `gorm:"default:false" json:"locked"`
	Hidden bool `gorm:"default:false" json:"hidden"`

	Type ModuleType `gorm:"type:varchar(16);not null;default:'quiz'" json:"type"`

	// 考试字段（type = exam 时存在且合法）
	ExamDate      string `gorm:"size:10" json:"examDate,omitempty"`
	ExamTime      string `gorm:"size:5" json:"examTime,omitempty"`
	ExamDuration  int    `gorm:"default:0" json:"examDuration,omitempty"` // 分钟
	ExamCompleted bool   `gorm:"default:false" json:"examCompleted"`
}

func (Module) TableName() string {
	return "modules"
}

func (m *Module) IsExam() bool {
	return m.Type == ExamModule
}

// ExamStart 解析考试开始时间（本地时区，和录入时一致）。
func (m *Module) ExamStart() (time.Time, error) {
	return time.ParseInLocation(ExamDateLayout+"T"+ExamTimeLayout, m.ExamDate+"T"+m.ExamTime, time.Local)
}
