package service

import (
	"testing"
	"time"

	"limit_backend/internal/grading"
	"limit_backend/internal/model"
	"limit_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*SessionService, *memQuestionStore, *memModuleStore, *memStateStore, *fixedClock) {
	t.Helper()
	questions := newMemQuestionStore()
	modules := newMemModuleStore()
	states := newMemStateStore()
	locks := NewModuleLocks()
	clock := &fixedClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)}

	lifecycle := NewLifecycleService(modules, states, locks)
	lifecycle.Now = clock.Now

	svc := NewSessionService(questions, modules, states, lifecycle, grading.NewGrader(nil), locks, nil, time.Hour)
	svc.Now = clock.Now
	lifecycle.DiscardProgress = svc.DiscardModule
	return svc, questions, modules, states, clock
}

func typedQuestion(id uint, text, answer string) *model.Question {
	return &model.Question{ID: id, Text: text, Type: model.TypedQuestion, Answer: answer}
}

func mcqQuestion(id uint, text string, options []string, correct int) *model.Question {
	return &model.Question{ID: id, Text: text, Type: model.MCQQuestion, Options: options, CorrectIndex: &correct}
}

func intPtr(i int) *int { return &i }

func TestQuizFlowRecordsProgressPerAnswer(t *testing.T) {
	svc, questions, modules, states, _ := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(mcqQuestion(2, "首都", []string{"上海", "北京"}, 1)))
	require.NoError(t, modules.Create(quizModule(1, []uint{1, 2})))

	step, err := svc.Start(1)
	require.NoError(t, err)
	require.NotNil(t, step.Question)
	assert.Equal(t, uint(1), step.Question.ID)
	assert.Equal(t, 2, step.Question.Total)

	// 答对第一题
	result, err := svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.False(t, result.Finished)

	// 每答一题进度立即落库
	st, _ := states.Get(1)
	require.NotNil(t, st)
	assert.Len(t, st.Done, 1)
	assert.Equal(t, 1, st.Score)
	assert.False(t, st.Completed)

	// 答错第二题
	step, err = svc.NextQuestion(step.SessionID)
	require.NoError(t, err)
	require.NotNil(t, step.Question)
	assert.Equal(t, uint(2), step.Question.ID)

	result, err = svc.SubmitAnswer(step.SessionID, AnswerInput{SelectedIndex: intPtr(0)})
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.True(t, result.Finished)

	step, err = svc.NextQuestion(step.SessionID)
	require.NoError(t, err)
	require.NotNil(t, step.Summary)
	assert.Equal(t, 1, step.Summary.Score)
	assert.Equal(t, 2, step.Summary.Total)
	assert.Equal(t, 50, step.Summary.Accuracy)

	st, _ = states.Get(1)
	assert.True(t, st.Completed)
}

func TestQuizResumeSkipsAnsweredByID(t *testing.T) {
	svc, questions, modules, states, _ := newSessionFixture(t)
	for i := uint(1); i <= 3; i++ {
		require.NoError(t, questions.Create(typedQuestion(i, "q", "a")))
	}
	m := quizModule(1, []uint{1, 2, 3})
	m.Shuffle = true
	require.NoError(t, modules.Create(m))

	st := model.DefaultUserState(1)
	st.Done = []model.AnswerRecord{{QuestionID: 2, Correct: true, Answer: "a"}}
	require.NoError(t, states.Save(st))

	step, err := svc.Start(1)
	require.NoError(t, err)
	require.NotNil(t, step.Question)

	// 已答过的 2 号题不会再出现，与遍历顺序无关
	seen := map[uint]bool{}
	for step.Question != nil {
		seen[step.Question.ID] = true
		_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "a"})
		require.NoError(t, err)
		step, err = svc.NextQuestion(step.SessionID)
		require.NoError(t, err)
	}
	assert.False(t, seen[2])
	assert.True(t, seen[1])
	assert.True(t, seen[3])
}

func TestQuizEmptyAnswerRejectedWithoutMutation(t *testing.T) {
	svc, questions, modules, states, _ := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "q", "a")))
	require.NoError(t, modules.Create(quizModule(1, []uint{1})))

	step, err := svc.Start(1)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "   "})
	assert.ErrorIs(t, err, util.ErrEmptyAnswer)

	// 没推进也没写库
	st, _ := states.Get(1)
	assert.Nil(t, st)
	step, err = svc.NextQuestion(step.SessionID)
	require.NoError(t, err)
	require.NotNil(t, step.Question)
	assert.Equal(t, uint(1), step.Question.ID)
}

func TestEmptyQuizCompletesInstantly(t *testing.T) {
	svc, _, modules, states, _ := newSessionFixture(t)
	require.NoError(t, modules.Create(quizModule(1, nil)))

	step, err := svc.Start(1)
	require.NoError(t, err)
	require.NotNil(t, step.Summary)
	assert.Equal(t, 0, step.Summary.Total)
	assert.Equal(t, 0, step.Summary.Accuracy)

	st, _ := states.Get(1)
	require.NotNil(t, st)
	assert.True(t, st.Completed)
}

func TestEmptyExamRejected(t *testing.T) {
	svc, _, modules, _, clock := newSessionFixture(t)
	m := examModule(1, clock.now.Add(-10*time.Minute), 60, nil)
	require.NoError(t, modules.Create(m))

	_, err := svc.Start(1)
	assert.ErrorIs(t, err, util.ErrExamNoQuestions)
}

func TestExamFlowBuffersUntilSubmit(t *testing.T) {
	svc, questions, modules, states, clock := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(typedQuestion(2, "3*3", "9")))
	m := examModule(1, clock.now.Add(-10*time.Minute), 60, []uint{1, 2})
	require.NoError(t, modules.Create(m))

	step, err := svc.Start(1)
	require.NoError(t, err)
	require.NotNil(t, step.Question)

	result, err := svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
	require.NoError(t, err)
	assert.True(t, result.Correct)

	// 考试中途答案只进缓冲，进度表还没有完成记录
	st, _ := states.Get(1)
	assert.Nil(t, st)
	saved, _ := modules.FindByID(1)
	assert.False(t, saved.ExamCompleted)

	result, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "8"})
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.True(t, result.Finished)

	// 最后一题答完自动交卷
	saved, _ = modules.FindByID(1)
	assert.True(t, saved.ExamCompleted)
	st, _ = states.Get(1)
	require.NotNil(t, st)
	assert.Len(t, st.Done, 2)
	assert.Equal(t, 1, st.Score)
	assert.True(t, st.Completed)
}

func TestExamExitSubmits(t *testing.T) {
	svc, questions, modules, states, clock := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(typedQuestion(2, "3*3", "9")))
	m := examModule(1, clock.now.Add(-10*time.Minute), 60, []uint{1, 2})
	require.NoError(t, modules.Create(m))

	step, err := svc.Start(1)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
	require.NoError(t, err)

	require.NoError(t, svc.Exit(step.SessionID))

	saved, _ := modules.FindByID(1)
	assert.True(t, saved.ExamCompleted)
	st, _ := states.Get(1)
	require.NotNil(t, st)
	assert.Len(t, st.Done, 1)
	assert.True(t, st.Completed)

	// 交完卷不能再开
	_, err = svc.Start(1)
	assert.ErrorIs(t, err, util.ErrExamAlreadyCompleted)
}

func TestExamNotYetOpenAndEnded(t *testing.T) {
	svc, questions, modules, _, clock := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "q", "a")))

	future := examModule(1, clock.now.Add(2*time.Hour), 60, []uint{1})
	past := examModule(2, clock.now.Add(-3*time.Hour), 60, []uint{1})
	require.NoError(t, modules.Create(future))
	require.NoError(t, modules.Create(past))

	_, err := svc.Start(1)
	assert.ErrorIs(t, err, util.ErrExamNotYetOpen)

	_, err = svc.Start(2)
	assert.ErrorIs(t, err, util.ErrExamEnded)
}

func TestDanglingQuestionSkippedAndExcludedFromTotal(t *testing.T) {
	svc, questions, modules, _, _ := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(typedQuestion(2, "3*3", "9")))
	// 模块引用了已删除的 99 号题
	require.NoError(t, modules.Create(quizModule(1, []uint{1, 99, 2})))

	step, err := svc.Start(1)
	require.NoError(t, err)

	var summary *Summary
	for summary == nil {
		require.NotNil(t, step.Question)
		_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
		require.NoError(t, err)
		step, err = svc.NextQuestion(step.SessionID)
		require.NoError(t, err)
		summary = step.Summary
	}

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Score)
	assert.Equal(t, 50, summary.Accuracy)
}

func TestQuizProgressWriteFailureIsCoveredByNextWrite(t *testing.T) {
	svc, questions, modules, states, _ := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(typedQuestion(2, "3*3", "9")))
	require.NoError(t, modules.Create(quizModule(1, []uint{1, 2})))

	step, err := svc.Start(1)
	require.NoError(t, err)

	// 第一次写库失败不阻塞答题，但结果里带警告提示用户
	states.failSave = true
	result, err := svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.NotEmpty(t, result.Warning)
	st, _ := states.Get(1)
	assert.Nil(t, st)

	// 整条写回，下一次成功的写入会补上丢掉的记录
	states.failSave = false
	result, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "9"})
	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	st, _ = states.Get(1)
	require.NotNil(t, st)
	assert.Len(t, st.Done, 2)
	assert.Equal(t, 2, st.Score)
}

func TestExamSubmitPersistFailureIsRetryable(t *testing.T) {
	svc, questions, modules, states, clock := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(typedQuestion(2, "3*3", "9")))
	m := examModule(1, clock.now.Add(-10*time.Minute), 60, []uint{1, 2})
	require.NoError(t, modules.Create(m))

	step, err := svc.Start(1)
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
	require.NoError(t, err)

	// 最后一题答完交卷，落库失败必须报给调用方
	states.failSave = true
	_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "9"})
	require.Error(t, err)

	// 完成标志没翻，进度表没写，提交没有被悄悄丢掉
	saved, _ := modules.FindByID(1)
	assert.False(t, saved.ExamCompleted)
	st, _ := states.Get(1)
	assert.Nil(t, st)

	// 会话和缓冲都还在，存储恢复后退出即重新提交同一份答案
	states.failSave = false
	require.NoError(t, svc.Exit(step.SessionID))

	saved, _ = modules.FindByID(1)
	assert.True(t, saved.ExamCompleted)
	st, _ = states.Get(1)
	require.NotNil(t, st)
	assert.Len(t, st.Done, 2)
	assert.Equal(t, 2, st.Score)
	assert.True(t, st.Completed)

	_, err = svc.Start(1)
	assert.ErrorIs(t, err, util.ErrExamAlreadyCompleted)
}

func TestRestartDiscardsLiveSession(t *testing.T) {
	svc, questions, modules, states, _ := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	require.NoError(t, questions.Create(typedQuestion(2, "3*3", "9")))
	require.NoError(t, modules.Create(quizModule(1, []uint{1, 2})))

	step, err := svc.Start(1)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(step.SessionID, AnswerInput{Answer: "4"})
	require.NoError(t, err)

	// 重启把进度记录和活跃会话一起清掉
	require.NoError(t, svc.Lifecycle.Restart(1))

	st, _ := states.Get(1)
	assert.Nil(t, st)
	_, err = svc.NextQuestion(step.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	// 重新开始是全新的一轮
	step, err = svc.Start(1)
	require.NoError(t, err)
	assert.Equal(t, 2, step.Question.Total)
}

func TestAutoSubmitIdempotentOnSession(t *testing.T) {
	svc, questions, modules, states, clock := newSessionFixture(t)
	require.NoError(t, questions.Create(typedQuestion(1, "2+2", "4")))
	m := examModule(1, clock.now.Add(-10*time.Minute), 60, []uint{1})
	require.NoError(t, modules.Create(m))

	step, err := svc.Start(1)
	require.NoError(t, err)

	require.NoError(t, svc.AutoSubmit(step.SessionID))
	writes := states.saves
	// 会话已销毁，重复提交报会话不存在而不是重复写
	err = svc.AutoSubmit(step.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	assert.Equal(t, writes, states.saves)
}
