package repository

import (
	"limit_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindAll() ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Order("id desc").Find(&questions).Error
	return questions, err
}

// FindByTag 利用 tags JSON 列做多值查询，对应原存储的 tags 二级索引
func (r *QuestionRepository) FindByTag(tag string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("JSON_CONTAINS(tags, JSON_QUOTE(?))", tag).Order("id desc").Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) Save(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *QuestionRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Count(&count).Error
	return count, err
}

// ForEach 按批游标遍历全部题目
func (r *QuestionRepository) ForEach(fn func(q *model.Question) error) error {
	var batch []model.Question
	return r.DB.FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		return nil
	}).Error
}
