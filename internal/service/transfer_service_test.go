package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"limit_backend/internal/model"
	"limit_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransferFixture(t *testing.T) (*TransferService, *memQuestionStore, *memModuleStore, *memStateStore) {
	t.Helper()
	questions := newMemQuestionStore()
	modules := newMemModuleStore()
	states := newMemStateStore()
	settings := newMemSettingStore()
	svc := NewTransferService(questions, modules, states, settings, nil)
	return svc, questions, modules, states
}

func TestImportFlatShape(t *testing.T) {
	svc, questions, modules, states := newTransferFixture(t)

	raw := []byte(`{
		"version": 1,
		"exportedAt": "2026-03-01T12:00:00Z",
		"questions": [
			{"id": 1, "text": "2+2", "type": "typed", "answer": "4"},
			{"id": 2, "text": "首都", "type": "mcq", "options": ["上海", "北京"], "correctIndex": 1}
		],
		"modules": [
			{"id": 1, "name": "练习", "type": "quiz", "questions": [1, 2]}
		],
		"userState": [
			{"moduleId": 1, "done": [{"id": 1, "correct": true, "answer": "4"}], "score": 1}
		]
	}`)

	report, err := svc.ImportAll(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Questions)
	assert.Equal(t, 1, report.Modules)
	assert.Equal(t, 1, report.States)
	assert.Equal(t, 0, report.Errors)

	q, err := questions.FindByID(2)
	require.NoError(t, err)
	assert.Equal(t, model.MCQQuestion, q.Type)
	require.NotNil(t, q.CorrectIndex)
	assert.Equal(t, 1, *q.CorrectIndex)

	m, err := modules.FindByID(1)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, m.Questions)

	st, err := states.Get(1)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Score)
	assert.Len(t, st.Done, 1)
}

func TestImportNestedShape(t *testing.T) {
	svc, questions, _, _ := newTransferFixture(t)

	raw := []byte(`{
		"version": 1,
		"data": {
			"questions": [{"id": 7, "text": "q", "type": "typed", "answer": "a"}],
			"modules": [],
			"userState": []
		}
	}`)

	report, err := svc.ImportAll(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Questions)

	q, err := questions.FindByID(7)
	require.NoError(t, err)
	assert.Equal(t, "q", q.Text)
}

func TestImportMalformedAbortsBeforeWrites(t *testing.T) {
	svc, questions, modules, _ := newTransferFixture(t)

	_, err := svc.ImportAll(context.Background(), []byte(`{"questions": [{`))
	assert.ErrorIs(t, err, util.ErrImportFormat)

	_, err = svc.ImportAll(context.Background(), []byte(`{"foo": "bar"}`))
	assert.ErrorIs(t, err, util.ErrImportFormat)

	qc, _ := questions.Count()
	mc, _ := modules.Count()
	assert.Zero(t, qc)
	assert.Zero(t, mc)
}

func TestExportImportRoundTrip(t *testing.T) {
	src, questions, modules, states := newTransferFixture(t)
	src.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	answer := 1
	require.NoError(t, questions.Create(&model.Question{Text: "2+2", Type: model.TypedQuestion, Answer: "4", Tags: []string{"math"}}))
	require.NoError(t, questions.Create(&model.Question{Text: "首都", Type: model.MCQQuestion, Options: []string{"上海", "北京"}, CorrectIndex: &answer}))
	require.NoError(t, modules.Create(&model.Module{
		Name: "期末", Type: model.ExamModule, Questions: []uint{1, 2},
		ExamDate: "2026-03-10", ExamTime: "10:00", ExamDuration: 60, ExamCompleted: true,
	}))

	st := model.DefaultUserState(1)
	st.Done = []model.AnswerRecord{{QuestionID: 1, Correct: true, Answer: "4"}}
	st.Score = 1
	st.Completed = true
	require.NoError(t, states.Save(st))

	doc, err := src.ExportAll(context.Background())
	require.NoError(t, err)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	dst, dstQuestions, dstModules, dstStates := newTransferFixture(t)
	report, err := dst.ImportAll(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Questions)
	assert.Equal(t, 1, report.Modules)
	assert.Equal(t, 1, report.States)

	qc, _ := dstQuestions.Count()
	assert.EqualValues(t, 2, qc)

	m, err := dstModules.FindByID(1)
	require.NoError(t, err)
	assert.True(t, m.ExamCompleted)
	assert.Equal(t, 60, m.ExamDuration)

	got, err := dstStates.Get(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Completed)
	assert.Equal(t, 1, got.Score)
	assert.Len(t, got.Done, 1)
	assert.Equal(t, "4", got.Done[0].Answer)
}

func TestSingleEntityExport(t *testing.T) {
	svc, questions, modules, _ := newTransferFixture(t)
	require.NoError(t, questions.Create(&model.Question{Text: "q", Type: model.TypedQuestion, Answer: "a"}))
	require.NoError(t, modules.Create(&model.Module{Name: "m", Type: model.QuizModule, Questions: []uint{1}}))

	m, err := svc.ExportModule(1)
	require.NoError(t, err)
	assert.Equal(t, "m", m.Name)

	q, err := svc.ExportQuestion(1)
	require.NoError(t, err)
	assert.Equal(t, "q", q.Text)

	_, err = svc.ExportModule(99)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}
