package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"limit_backend/internal/grading"
	"limit_backend/internal/model"
	"limit_backend/internal/util"
	"limit_backend/pkg/logger"
	"limit_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session 一次进行中的答题会话。quiz 的进度按题目 id 集合记账，
// 会话只持有本次的遍历顺序；exam 按位置指针推进，答案先进缓冲区，
// 交卷时一次性合并落库。
type Session struct {
	ID       string
	ModuleID uint
	IsExam   bool

	Order   []uint
	Pointer int

	State  *model.UserState
	Buffer []model.AnswerRecord

	ExamEnd   time.Time
	timer     *time.Timer
	submitted bool

	// 引用了不存在题目的 id，遍历时跳过且不计入正确率分母
	skipped map[uint]bool

	mu sync.Mutex
}

// QuestionView 返回给答题端的单题视图，不携带正确答案
type QuestionView struct {
	ID      uint               `json:"id"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Options []string           `json:"options,omitempty"`
	Index   int                `json:"index"`
	Total   int                `json:"total"`
}

// Summary 会话完成时的结算视图
type Summary struct {
	Completed bool                 `json:"completed"`
	Score     int                  `json:"score"`
	Total     int                  `json:"total"`
	Accuracy  int                  `json:"accuracy"`
	Done      []model.AnswerRecord `json:"done"`
}

// StepResult 下一步要么是一道题，要么是结算
type StepResult struct {
	SessionID string        `json:"sessionId"`
	Question  *QuestionView `json:"question,omitempty"`
	Summary   *Summary      `json:"summary,omitempty"`
}

// AnswerInput 提交一题的请求体
type AnswerInput struct {
	Answer        string `json:"answer"`
	SelectedIndex *int   `json:"selectedIndex"`
}

// AnswerResult 判题反馈
type AnswerResult struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	CorrectIndex  *int   `json:"correctIndex,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	Finished      bool   `json:"finished"`
	Warning       string `json:"warning,omitempty"`
}

// SessionService 驱动答题会话：发题、判题、记进度、考试计时与交卷。
type SessionService struct {
	Questions QuestionStore
	Modules   ModuleStore
	States    UserStateStore
	Lifecycle *LifecycleService
	Grader    *grading.Grader
	Locks     *ModuleLocks

	// 可选的考试答案缓冲镜像，进程崩溃后可恢复未交卷的答案
	Redis     *redis.Client
	BufferTTL time.Duration

	Now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(questions QuestionStore, modules ModuleStore, states UserStateStore,
	lifecycle *LifecycleService, grader *grading.Grader, locks *ModuleLocks, rdb *redis.Client, bufferTTL time.Duration) *SessionService {
	return &SessionService{
		Questions: questions,
		Modules:   modules,
		States:    states,
		Lifecycle: lifecycle,
		Grader:    grader,
		Locks:     locks,
		Redis:     rdb,
		BufferTTL: bufferTTL,
		Now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

func bufferKey(moduleID uint) string {
	return fmt.Sprintf("exam:buffer:%d", moduleID)
}

// Start 开始一次会话。quiz 从未答的题目子集继续，exam 从上次的位置
// 指针继续。每次会话都重新洗牌，中断后继续不会回到旧顺序。
func (s *SessionService) Start(moduleID uint) (*StepResult, error) {
	m, err := s.Modules.FindByID(moduleID)
	if err != nil {
		return nil, util.ErrModuleNotFound
	}
	if err := s.Lifecycle.CheckStart(m); err != nil {
		return nil, err
	}

	state, err := s.States.Get(moduleID)
	if err != nil {
		// 进度读不出来按全新处理，不阻塞进入
		logger.Log.Warn("progress unreadable, starting fresh", zap.Uint("module", moduleID), zap.Error(err))
		state = nil
	}
	if state == nil {
		state = model.DefaultUserState(moduleID)
	}

	sess := &Session{
		ID:       uuid.New().String(),
		ModuleID: moduleID,
		IsExam:   m.IsExam(),
		State:    state,
		skipped:  make(map[uint]bool),
	}

	if m.IsExam() {
		if len(m.Questions) == 0 {
			return nil, util.ErrExamNoQuestions
		}
		sess.Order = append([]uint(nil), m.Questions...)
		if m.Shuffle {
			shuffleIDs(sess.Order)
		}
		sess.Pointer = state.CurrentQuestion
		if sess.Pointer > len(sess.Order) {
			sess.Pointer = len(sess.Order)
		}
		sess.Buffer = s.recoverBuffer(moduleID)
		if len(sess.Buffer) > sess.Pointer {
			sess.Pointer = len(sess.Buffer)
		}

		_, end, _, err := ExamWindow(m)
		if err != nil {
			return nil, err
		}
		sess.ExamEnd = end
		remaining := end.Sub(s.Now())
		id := sess.ID
		sess.timer = time.AfterFunc(remaining, func() {
			if err := s.AutoSubmit(id); err != nil {
				logger.Log.Error("timed auto-submit failed", zap.String("session", id), zap.Error(err))
			}
		})
	} else {
		done := state.DoneIDs()
		if len(m.Questions) > 0 && len(done) >= len(m.Questions) {
			// 全部答完再进入视为重新开始
			state = model.DefaultUserState(moduleID)
			sess.State = state
			done = map[uint]bool{}
		}
		for _, id := range m.Questions {
			if !done[id] {
				sess.Order = append(sess.Order, id)
			}
		}
		if m.Shuffle {
			shuffleIDs(sess.Order)
		}
		if len(m.Questions) == 0 {
			// 空模块直接结算为 0%
			state.Completed = true
			state.Timestamp = s.Now()
			s.persistQuiz(sess)
			return &StepResult{SessionID: sess.ID, Summary: s.summarize(sess)}, nil
		}
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	monitoring.ActiveSessions.Inc()

	return s.NextQuestion(sess.ID)
}

// NextQuestion 取会话的下一道题；没有剩余时返回结算视图。
func (s *SessionService) NextQuestion(sessionID string) (*StepResult, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	for sess.Pointer < len(sess.Order) {
		qid := sess.Order[sess.Pointer]
		q, err := s.Questions.FindByID(qid)
		if err != nil || q == nil {
			// 悬空引用：跳过且不计入分母
			sess.skipped[qid] = true
			sess.Pointer++
			continue
		}
		view := &QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
			Index:   sess.Pointer + 1,
			Total:   len(sess.Order),
		}
		return &StepResult{SessionID: sess.ID, Question: view}, nil
	}

	return &StepResult{SessionID: sess.ID, Summary: s.summarize(sess)}, nil
}

// SubmitAnswer 判题并记录。quiz 每答一题整条写回进度；exam 只进缓冲，
// 最后一题答完触发交卷。
func (s *SessionService) SubmitAnswer(sessionID string, input AnswerInput) (*AnswerResult, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.submitted {
		return nil, util.ErrExamAlreadyCompleted
	}
	if sess.Pointer >= len(sess.Order) {
		return nil, util.ErrSessionNotFound
	}

	qid := sess.Order[sess.Pointer]
	q, err := s.Questions.FindByID(qid)
	if err != nil || q == nil {
		sess.skipped[qid] = true
		sess.Pointer++
		return nil, util.ErrQuestionNotFound
	}

	var correct bool
	var recorded string
	switch q.Type {
	case model.MCQQuestion:
		if input.SelectedIndex == nil {
			return nil, util.ErrEmptyAnswer
		}
		if q.CorrectIndex != nil {
			correct = s.Grader.CheckMCQ(*input.SelectedIndex, *q.CorrectIndex)
		}
		if *input.SelectedIndex >= 0 && *input.SelectedIndex < len(q.Options) {
			recorded = q.Options[*input.SelectedIndex]
		}
	default:
		if strings.TrimSpace(input.Answer) == "" {
			// 空答案不判错也不推进
			return nil, util.ErrEmptyAnswer
		}
		correct = s.Grader.CheckTyped(input.Answer, q.Answer)
		recorded = input.Answer
	}

	record := model.AnswerRecord{QuestionID: q.ID, Correct: correct, Answer: recorded}
	sess.Pointer++
	monitoring.AnswersGraded.WithLabelValues(string(q.Type), strconv.FormatBool(correct)).Inc()

	result := &AnswerResult{
		Correct:     correct,
		Explanation: q.Explanation,
	}
	if q.Type == model.MCQQuestion {
		result.CorrectIndex = q.CorrectIndex
	} else {
		result.CorrectAnswer = q.Answer
	}

	if sess.IsExam {
		sess.Buffer = append(sess.Buffer, record)
		sess.State.CurrentQuestion = sess.Pointer
		s.mirrorBuffer(sess)
		if sess.Pointer >= len(sess.Order) {
			if err := s.finalize(sess); err != nil {
				return nil, err
			}
			result.Finished = true
			monitoring.ExamSubmissions.WithLabelValues("completed").Inc()
		}
		return result, nil
	}

	sess.State.Done = append(sess.State.Done, record)
	if err := s.persistQuiz(sess); err != nil {
		result.Warning = "progress not saved yet, it will be retried with your next answer"
	}
	if s.quizFinished(sess) {
		result.Finished = true
	}
	return result, nil
}

// Exit 离开会话。quiz 进度已随答题落库，直接销毁会话；
// exam 中途退出视同交卷。
func (s *SessionService) Exit(sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}

	if sess.IsExam {
		return s.AutoSubmit(sessionID)
	}

	sess.mu.Lock()
	err = s.persistQuiz(sess)
	sess.mu.Unlock()
	if err != nil {
		// 会话留着，用户可以重试退出
		return err
	}
	s.drop(sessionID)
	return nil
}

// AutoSubmit 考试交卷：缓冲区合并进进度整条落库，翻转模块完成标志，
// 清掉镜像。幂等，计时器触发与手动退出可以竞争调用。
func (s *SessionService) AutoSubmit(sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.submitted || !sess.IsExam {
		sess.mu.Unlock()
		return nil
	}
	if err := s.finalizeLocked(sess); err != nil {
		sess.mu.Unlock()
		return err
	}
	sess.submitted = true
	if sess.timer != nil {
		sess.timer.Stop()
	}
	monitoring.ExamSubmissions.WithLabelValues("auto").Inc()
	sess.mu.Unlock()

	s.drop(sessionID)
	return nil
}

// SubmitOverdue 后台巡检入口：超过结束时间仍未交卷的考试会话统一收卷。
func (s *SessionService) SubmitOverdue() {
	now := s.Now()
	s.mu.RLock()
	var due []string
	for id, sess := range s.sessions {
		if sess.IsExam && !sess.submitted && now.After(sess.ExamEnd) {
			due = append(due, id)
		}
	}
	s.mu.RUnlock()
	for _, id := range due {
		if err := s.AutoSubmit(id); err != nil {
			logger.Log.Error("overdue submit failed", zap.String("session", id), zap.Error(err))
		}
	}
}

func (s *SessionService) get(sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionService) drop(sessionID string) {
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		monitoring.ActiveSessions.Dec()
	}
	s.mu.Unlock()
}

// finalize 在已持有 sess.mu 的前提下结束考试会话。落库失败时
// 会话与缓冲原样保留，调用方重试即可再次提交同一份答案。
func (s *SessionService) finalize(sess *Session) error {
	if sess.submitted {
		return nil
	}
	if err := s.finalizeLocked(sess); err != nil {
		return err
	}
	sess.submitted = true
	if sess.timer != nil {
		sess.timer.Stop()
	}
	go s.drop(sess.ID)
	return nil
}

func (s *SessionService) finalizeLocked(sess *Session) error {
	merged := len(sess.Buffer)
	sess.State.Done = append(sess.State.Done, sess.Buffer...)
	sess.State.CurrentQuestion = sess.Pointer
	sess.State.Score = sess.State.CorrectCount()
	sess.State.Completed = true
	sess.State.Timestamp = s.Now()

	if err := s.Lifecycle.AutoSubmit(sess.ModuleID, sess.State); err != nil {
		// 回滚合并，缓冲和 redis 镜像都留着，下次交卷重新走一遍
		sess.State.Done = sess.State.Done[:len(sess.State.Done)-merged]
		sess.State.Completed = false
		logger.Log.Error("exam submit persist failed", zap.Uint("module", sess.ModuleID), zap.Error(err))
		return err
	}
	sess.Buffer = nil
	s.clearBuffer(sess.ModuleID)
	return nil
}

// persistQuiz 整条写回 quiz 进度。写失败不致命，内存里的记录会随
// 下一次写回一并补上，但错误要交给调用方提示用户
func (s *SessionService) persistQuiz(sess *Session) error {
	lock := s.Locks.For(sess.ModuleID)
	lock.Lock()
	defer lock.Unlock()

	sess.State.Score = sess.State.CorrectCount()
	sess.State.Completed = s.quizFinished(sess)
	sess.State.Timestamp = s.Now()
	if err := s.States.Save(sess.State); err != nil {
		logger.Log.Error("progress write failed", zap.Uint("module", sess.ModuleID), zap.Error(err))
		return err
	}
	return nil
}

func (s *SessionService) quizFinished(sess *Session) bool {
	m, err := s.Modules.FindByID(sess.ModuleID)
	if err != nil {
		return false
	}
	if len(m.Questions) == 0 {
		return true
	}
	done := sess.State.DoneIDs()
	for _, id := range m.Questions {
		if !done[id] && !sess.skipped[id] {
			return false
		}
	}
	return true
}

func (s *SessionService) summarize(sess *Session) *Summary {
	var done []model.AnswerRecord
	if sess.IsExam {
		done = append(append([]model.AnswerRecord(nil), sess.State.Done...), sess.Buffer...)
	} else {
		done = sess.State.Done
	}
	// 被跳过的悬空引用不计入分母
	total := len(done) + remainingOf(sess)
	correct := 0
	for _, r := range done {
		if r.Correct {
			correct++
		}
	}
	return &Summary{
		Completed: true,
		Score:     correct,
		Total:     total,
		Accuracy:  accuracy(correct, total),
		Done:      done,
	}
}

func remainingOf(sess *Session) int {
	n := 0
	for _, id := range sess.Order[sess.Pointer:] {
		if !sess.skipped[id] {
			n++
		}
	}
	return n
}

// mirrorBuffer 把考试缓冲区写进 redis，崩溃后 Start 时可找回
func (s *SessionService) mirrorBuffer(sess *Session) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(sess.Buffer)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Redis.Set(ctx, bufferKey(sess.ModuleID), data, s.BufferTTL).Err(); err != nil {
		logger.Log.Warn("buffer mirror write failed", zap.Uint("module", sess.ModuleID), zap.Error(err))
	}
}

func (s *SessionService) recoverBuffer(moduleID uint) []model.AnswerRecord {
	if s.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := s.Redis.Get(ctx, bufferKey(moduleID)).Bytes()
	if err != nil {
		return nil
	}
	var buf []model.AnswerRecord
	if err := json.Unmarshal(data, &buf); err != nil {
		return nil
	}
	logger.Log.Info("recovered buffered exam answers", zap.Uint("module", moduleID), zap.Int("count", len(buf)))
	return buf
}

// DiscardModule 丢弃某模块的全部暂存进度：活跃会话连同 redis 镜像
// 一起清掉。重启模块时由生命周期服务回调。
func (s *SessionService) DiscardModule(moduleID uint) {
	s.mu.RLock()
	var victims []string
	for id, sess := range s.sessions {
		if sess.ModuleID == moduleID {
			victims = append(victims, id)
		}
	}
	s.mu.RUnlock()
	for _, id := range victims {
		if sess, err := s.get(id); err == nil {
			sess.mu.Lock()
			sess.submitted = true
			if sess.timer != nil {
				sess.timer.Stop()
			}
			sess.mu.Unlock()
		}
		s.drop(id)
	}
	s.clearBuffer(moduleID)
}

func (s *SessionService) clearBuffer(moduleID uint) {
	if s.Redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Redis.Del(ctx, bufferKey(moduleID))
}

func shuffleIDs(ids []uint) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
