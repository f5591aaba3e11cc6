package model

import "time"

// AnswerRecord 一条作答记录，按作答顺序追加到 UserState.Done。
type AnswerRecord struct {
	QuestionID uint   `json:"id"`
	Correct    bool   `json:"correct"`
	Answer     string `json:"answer"`
}

// UserState 每个模块至多一条进度记录，主键即模块 id。
// 写入始终是整条覆盖，不做字段级局部更新。
type UserState struct {
	ModuleID uint `gorm:"primaryKey" json:"moduleId"`

	Done []AnswerRecord `gorm:"serializer:json" json:"done"`

	// 仅考试交付使用的顺序指针，quiz 按 Done 中的 id 集合推导下一题
	CurrentQuestion int `gorm:"default:0" json:"currentQuestion"`

	Score     int       `gorm:"default:0" json:"score"`
	Completed bool      `gorm:"default:false" json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserState) TableName() string {
	return "user_state"
}

// DefaultUserState 模块尚未作答时返回的空记录，不落库。
func DefaultUserState(moduleID uint) *UserState {
	return &UserState{
		ModuleID:  moduleID,
		Done:      []AnswerRecord{},
		Timestamp: time.Now(),
	}
}

// CorrectCount Done 中答对的条数。
func (s *UserState) CorrectCount() int {
	n := 0
	for _, d := range s.Done {
		if d.Correct {
			n++
		}
	}
	return n
}

// DoneIDs 已作答题目的 id 集合。
func (s *UserState) DoneIDs() map[uint]bool {
	ids := make(map[uint]bool, len(s.Done))
	for _, d := range s.Done {
		ids[d.QuestionID] = true
	}
	return ids
}
