package service

import (
	"fmt"
	"strings"

	"limit_backend/internal/model"
	"limit_backend/internal/util"
)

// QuestionService 题库的增删改查与校验
type QuestionService struct {
	Questions QuestionStore
}

func NewQuestionService(questions QuestionStore) *QuestionService {
	return &QuestionService{Questions: questions}
}

// Validate 按题型校验字段完整性
func (s *QuestionService) Validate(q *model.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	switch q.Type {
	case model.MCQQuestion:
		if len(q.Options) < 2 {
			return fmt.Errorf("mcq needs at least two options")
		}
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("correctIndex out of range")
		}
	case model.TypedQuestion:
		if strings.TrimSpace(q.Answer) == "" {
			return fmt.Errorf("typed question needs an answer")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

func (s *QuestionService) Create(q *model.Question) error {
	if err := s.Validate(q); err != nil {
		return err
	}
	return s.Questions.Create(q)
}

func (s *QuestionService) Get(id uint) (*model.Question, error) {
	q, err := s.Questions.FindByID(id)
	if err != nil || q == nil {
		return nil, util.ErrQuestionNotFound
	}
	return q, nil
}

func (s *QuestionService) List() ([]model.Question, error) {
	return s.Questions.FindAll()
}

func (s *QuestionService) Update(q *model.Question) error {
	if err := s.Validate(q); err != nil {
		return err
	}
	existing, err := s.Questions.FindByID(q.ID)
	if err != nil || existing == nil {
		return util.ErrQuestionNotFound
	}
	return s.Questions.Save(q)
}

// Delete 删除题目。模块里残留的引用由会话端按悬空引用跳过，
// 这里不做级联清理。
func (s *QuestionService) Delete(id uint) error {
	existing, err := s.Questions.FindByID(id)
	if err != nil || existing == nil {
		return util.ErrQuestionNotFound
	}
	return s.Questions.Delete(id)
}

// Search 标签精确匹配加题干子串匹配，二者取并集去重
func (s *QuestionService) Search(query string) ([]model.Question, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Questions.FindAll()
	}

	byTag, err := s.Questions.FindByTag(query)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(byTag))
	out := make([]model.Question, 0, len(byTag))
	for _, q := range byTag {
		seen[q.ID] = true
		out = append(out, q)
	}

	all, err := s.Questions.FindAll()
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(query)
	for _, q := range all {
		if seen[q.ID] {
			continue
		}
		if strings.Contains(strings.ToLower(q.Text), lower) {
			out = append(out, q)
		}
	}
	return out, nil
}
