package model

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	TypedQuestion QuestionType = "typed"
	MCQQuestion   QuestionType = "mcq"
)

// Question 题库中的一道题。Text/Options/Answer 为富文本 HTML，本服务不解析其内容。
type Question struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Text string       `gorm:"type:text;not null" json:"text"`
	Type QuestionType `gorm:"type:varchar(16);not null" json:"type"`

	// 选择题字段（type = mcq 时存在）
	Options      []string `gorm:"serializer:json" json:"options,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`

	// 填空题字段（type = typed 时存在）
	Answer string `gorm:"type:text" json:"answer,omitempty"`

	Tags        []string `gorm:"serializer:json" json:"tags"`
	Explanation string   `gorm:"type:text" json:"explanation,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}
