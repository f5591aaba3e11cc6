package service

import (
	"fmt"
	"math"
	"time"

	"limit_backend/internal/model"
	"limit_backend/internal/util"
	"limit_backend/pkg/logger"

	"go.uber.org/zap"
)

// Phase 模块在某一时刻的可用性状态。quiz 只有进度维度；
// exam 由墙钟时间和 examCompleted 标志共同决定。
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"

	PhaseNotYetOpen       Phase = "not_yet_open"
	PhaseOpen             Phase = "open"
	PhaseEndedUnsubmitted Phase = "ended_unsubmitted"
	PhaseAwaitingResults  Phase = "awaiting_results"
	PhaseReviewWindow     Phase = "review_window"
	PhaseExpired          Phase = "expired"
)

// Availability 列表视图需要的模块状态快照
type Availability struct {
	Phase     Phase  `json:"phase"`
	Label     string `json:"label"`
	Enterable bool   `json:"enterable"`
}

// ScoreView 考试成绩查看结果
type ScoreView struct {
	Status      string               `json:"status"` // pending | ready
	AvailableIn string               `json:"availableIn,omitempty"`
	Done        []model.AnswerRecord `json:"done,omitempty"`
	Score       int                  `json:"score"`
	Total       int                  `json:"total"`
	Accuracy    int                  `json:"accuracy"`
}

// ModuleCard 答题端首页列表条目
type ModuleCard struct {
	ID           uint             `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Type         model.ModuleType `json:"type"`
	Total        int              `json:"total"`
	DoneCount    int              `json:"doneCount"`
	Percent      int              `json:"percent"`
	Accuracy     int              `json:"accuracy"`
	Availability Availability     `json:"availability"`
}

// LifecycleService 模块/考试生命周期的唯一决策点：某模块此刻能否进入、
// 以什么方式进入，以及考试的自动交卷与成绩查看窗口。
type LifecycleService struct {
	Modules ModuleStore
	States  UserStateStore
	Locks   *ModuleLocks

	// 重启模块时需要一并丢弃的会话暂存，由会话服务注入
	DiscardProgress func(moduleID uint)

	// 可注入时钟，测试用
	Now func() time.Time
}

func NewLifecycleService(modules ModuleStore, states UserStateStore, locks *ModuleLocks) *LifecycleService {
	return &LifecycleService{
		Modules: modules,
		States:  states,
		Locks:   locks,
		Now:     time.Now,
	}
}

// ExamWindow 计算考试的三个时间界限：开始、结束、复查窗口截止（结束后再过时长的一半）。
func ExamWindow(m *model.Module) (start, end, reviewEnd time.Time, err error) {
	start, err = m.ExamStart()
	if err != nil {
		return
	}
	dur := time.Duration(m.ExamDuration) * time.Minute
	end = start.Add(dur)
	reviewEnd = end.Add(dur / 2)
	return
}

// Evaluate 推导模块的当前状态与入口按钮语义。state 可为 nil（未开始）。
func (s *LifecycleService) Evaluate(m *model.Module, state *model.UserState) Availability {
	if !m.IsExam() {
		total := len(m.Questions)
		done := 0
		if state != nil {
			done = len(state.Done)
		}
		switch {
		case total > 0 && done >= total:
			return Availability{Phase: PhaseCompleted, Label: "Restart", Enterable: true}
		case done > 0:
			return Availability{Phase: PhaseInProgress, Label: "Continue", Enterable: true}
		default:
			return Availability{Phase: PhaseNotStarted, Label: "Start", Enterable: true}
		}
	}

	now := s.Now()
	start, end, reviewEnd, err := ExamWindow(m)
	if err != nil {
		logger.Log.Warn("malformed exam schedule", zap.Uint("module", m.ID), zap.Error(err))
		return Availability{Phase: PhaseNotYetOpen, Label: "Not Available Yet"}
	}

	if m.ExamCompleted {
		switch {
		case now.Before(end):
			// 正常流程不可达：完成只会发生在考试结束/自动交卷之后。
			// 防御性保留，报告“成绩未出”而不是出错。
			return Availability{Phase: PhaseAwaitingResults, Label: "View Scores", Enterable: true}
		case !now.After(reviewEnd):
			return Availability{Phase: PhaseReviewWindow, Label: "View Scores", Enterable: true}
		default:
			return Availability{Phase: PhaseExpired, Label: "Exam Ended"}
		}
	}

	switch {
	case now.Before(start):
		return Availability{Phase: PhaseNotYetOpen, Label: "Not Available Yet"}
	case now.After(end):
		return Availability{Phase: PhaseEndedUnsubmitted, Label: "Exam Ended"}
	default:
		return Availability{Phase: PhaseOpen, Label: "Start Exam", Enterable: true}
	}
}

// CheckStart 校验此刻能否开始一次答题会话。quiz 永远允许。
func (s *LifecycleService) CheckStart(m *model.Module) error {
	if !m.IsExam() {
		return nil
	}
	if m.ExamCompleted {
		return util.ErrExamAlreadyCompleted
	}
	start, end, _, err := ExamWindow(m)
	if err != nil {
		return err
	}
	now := s.Now()
	if now.Before(start) {
		return util.ErrExamNotYetOpen
	}
	if now.After(end) {
		return util.ErrExamEnded
	}
	return nil
}

// AutoSubmit 考试的强制交卷，幂等：已完成的考试上调用是 no-op。
// finalState 非 nil 时整条写入进度记录。ExamCompleted 只会 false→true，
// 且一定在进度落库之后才翻转，任何一步失败都原样返回错误供重试。
func (s *LifecycleService) AutoSubmit(moduleID uint, finalState *model.UserState) error {
	lock := s.Locks.For(moduleID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.Modules.FindByID(moduleID)
	if err != nil {
		return util.ErrModuleNotFound
	}
	if !m.IsExam() {
		return nil
	}
	if m.ExamCompleted {
		return nil
	}

	if finalState != nil {
		finalState.Timestamp = s.Now()
		if err := s.States.Save(finalState); err != nil {
			// 进度没落库前不翻完成标志，否则提交就丢了
			return err
		}
	}

	m.ExamCompleted = true
	if err := s.Modules.Save(m); err != nil {
		return err
	}

	logger.Log.Info("exam auto-submitted", zap.Uint("module", moduleID))
	return nil
}

// ViewScores 成绩查看。考试未结束报告等待时长；复查窗口已过则把模块
// 隐藏并锁定（首次观察到过期的访问触发这一副作用），之后模块从首页消失。
func (s *LifecycleService) ViewScores(moduleID uint) (*ScoreView, error) {
	m, err := s.Modules.FindByID(moduleID)
	if err != nil {
		return nil, util.ErrModuleNotFound
	}
	if !m.IsExam() {
		return nil, util.ErrScoresNotAvailable
	}

	_, end, reviewEnd, err := ExamWindow(m)
	if err != nil {
		return nil, err
	}
	now := s.Now()

	if now.Before(end) {
		return &ScoreView{
			Status:      "pending",
			AvailableIn: formatWait(end.Sub(now)),
		}, nil
	}

	if now.After(reviewEnd) {
		lock := s.Locks.For(moduleID)
		lock.Lock()
		m.Hidden = true
		m.Locked = true
		m.ExamCompleted = true
		saveErr := s.Modules.Save(m)
		lock.Unlock()
		if saveErr != nil {
			logger.Log.Error("failed to lock expired exam", zap.Uint("module", moduleID), zap.Error(saveErr))
		}
		return nil, util.ErrReviewWindowExpired
	}

	state, err := s.States.Get(moduleID)
	if err != nil || state == nil {
		state = model.DefaultUserState(moduleID)
	}
	total := len(m.Questions)
	return &ScoreView{
		Status:   "ready",
		Done:     state.Done,
		Score:    state.CorrectCount(),
		Total:    total,
		Accuracy: accuracy(state.CorrectCount(), total),
	}, nil
}

// Restart 清空进度，考试模块同时复位 examCompleted 与 hidden。
// locked 保持不变：这是唯一能让考试状态后退的路径。
func (s *LifecycleService) Restart(moduleID uint) error {
	lock := s.Locks.For(moduleID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.Modules.FindByID(moduleID)
	if err != nil {
		return util.ErrModuleNotFound
	}

	if err := s.States.Delete(moduleID); err != nil {
		return err
	}
	if s.DiscardProgress != nil {
		s.DiscardProgress(moduleID)
	}

	if m.IsExam() {
		m.ExamCompleted = false
		m.Hidden = false
		if err := s.Modules.Save(m); err != nil {
			return err
		}
	}

	logger.Log.Info("module restarted", zap.Uint("module", moduleID))
	return nil
}

// HomeList 答题端可见的模块列表：排除 locked、hidden，以及复查窗口
// 已结束的已完成考试。
func (s *LifecycleService) HomeList() ([]ModuleCard, error) {
	modules, err := s.Modules.FindAll()
	if err != nil {
		return nil, err
	}

	cards := make([]ModuleCard, 0, len(modules))
	now := s.Now()
	for i := range modules {
		m := &modules[i]
		if m.Locked || m.Hidden {
			continue
		}
		if m.IsExam() && m.ExamCompleted {
			if _, _, reviewEnd, err := ExamWindow(m); err == nil && now.After(reviewEnd) {
				continue
			}
		}

		state, err := s.States.Get(m.ID)
		if err != nil || state == nil {
			state = model.DefaultUserState(m.ID)
		}

		total := len(m.Questions)
		done := len(state.Done)
		percent := 0
		if total > 0 {
			percent = int(math.Round(float64(done) / float64(total) * 100))
		}
		acc := 0
		if done > 0 {
			acc = int(math.Round(float64(state.CorrectCount()) / float64(done) * 100))
		}

		cards = append(cards, ModuleCard{
			ID:           m.ID,
			Name:         m.Name,
			Description:  m.Description,
			Type:         m.Type,
			Total:        total,
			DoneCount:    done,
			Percent:      percent,
			Accuracy:     acc,
			Availability: s.Evaluate(m, state),
		})
	}
	return cards, nil
}

// SweepExpired 后台巡检：把复查窗口已过的已完成考试隐藏并锁定。
// 与 ViewScores 的首次访问副作用互为兜底。
func (s *LifecycleService) SweepExpired() error {
	modules, err := s.Modules.FindAll()
	if err != nil {
		return err
	}
	now := s.Now()
	for i := range modules {
		m := &modules[i]
		if !m.IsExam() || !m.ExamCompleted || (m.Hidden && m.Locked) {
			continue
		}
		_, _, reviewEnd, err := ExamWindow(m)
		if err != nil || !now.After(reviewEnd) {
			continue
		}
		lock := s.Locks.For(m.ID)
		lock.Lock()
		m.Hidden = true
		m.Locked = true
		saveErr := s.Modules.Save(m)
		lock.Unlock()
		if saveErr != nil {
			logger.Log.Error("sweep: failed to hide expired exam", zap.Uint("module", m.ID), zap.Error(saveErr))
		}
	}
	return nil
}

func accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func formatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
