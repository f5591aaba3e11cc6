package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"limit_backend/internal/model"
	"limit_backend/internal/util"
	"limit_backend/pkg/logger"

	"go.uber.org/zap"
)

// ExportDocument 全量导出的顶层结构
type ExportDocument struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exportedAt"`
	Questions  []model.Question      `json:"questions"`
	Modules    []model.Module        `json:"modules"`
	UserState  []model.UserState     `json:"userState"`
	Settings   []model.GlobalSetting `json:"settings,omitempty"`
}

// importEnvelope 兼容两种输入：扁平结构与 data 包裹的嵌套结构
type importEnvelope struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exportedAt"`
	Questions  []model.Question      `json:"questions"`
	Modules    []model.Module        `json:"modules"`
	UserState  []model.UserState     `json:"userState"`
	Settings   []model.GlobalSetting `json:"settings"`
	Data       *importEnvelope       `json:"data"`
}

// TransferService 题库与模块的整库导入导出
type TransferService struct {
	Questions QuestionStore
	Modules   ModuleStore
	States    UserStateStore
	Settings  SettingStore
	Storage   *StorageService

	Now func() time.Time
}

func NewTransferService(questions QuestionStore, modules ModuleStore, states UserStateStore,
	settings SettingStore, storage *StorageService) *TransferService {
	return &TransferService{
		Questions: questions,
		Modules:   modules,
		States:    states,
		Settings:  settings,
		Storage:   storage,
		Now:       time.Now,
	}
}

// ExportAll 导出全部数据。题库用游标分批读，不整表进内存。
func (s *TransferService) ExportAll(ctx context.Context) (*ExportDocument, error) {
	doc := &ExportDocument{
		Version:    1,
		ExportedAt: s.Now(),
		Questions:  []model.Question{},
		Modules:    []model.Module{},
		UserState:  []model.UserState{},
	}

	if err := s.Questions.ForEach(func(q *model.Question) error {
		doc.Questions = append(doc.Questions, *q)
		return nil
	}); err != nil {
		return nil, err
	}

	modules, err := s.Modules.FindAll()
	if err != nil {
		return nil, err
	}
	doc.Modules = modules

	states, err := s.States.FindAll()
	if err != nil {
		return nil, err
	}
	doc.UserState = states

	if theme, err := s.Settings.Get(model.SettingTheme); err == nil && theme != "" {
		doc.Settings = []model.GlobalSetting{{Key: model.SettingTheme, Value: theme}}
	}

	return doc, nil
}

// ExportModule 单模块原样导出，外层包成数组即可重新导入
func (s *TransferService) ExportModule(id uint) (*model.Module, error) {
	m, err := s.Modules.FindByID(id)
	if err != nil || m == nil {
		return nil, util.ErrModuleNotFound
	}
	return m, nil
}

func (s *TransferService) ExportQuestion(id uint) (*model.Question, error) {
	q, err := s.Questions.FindByID(id)
	if err != nil || q == nil {
		return nil, util.ErrQuestionNotFound
	}
	return q, nil
}

// ImportAll 导入整库。先整体解析校验再写库，格式坏的文件一行都不会写入；
// 写入按 id 逐条 upsert，中途失败不回滚已写入的条目。
func (s *TransferService) ImportAll(ctx context.Context, raw []byte) (*ImportReport, error) {
	var env importEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrImportFormat, err)
	}

	// 嵌套结构取 data 内层
	body := &env
	if env.Data != nil {
		body = env.Data
	}
	if body.Questions == nil && body.Modules == nil && body.UserState == nil {
		return nil, fmt.Errorf("%w: no recognizable sections", util.ErrImportFormat)
	}

	report := &ImportReport{}
	for i := range body.Questions {
		q := body.Questions[i]
		if err := s.upsertQuestion(&q); err != nil {
			logger.Log.Error("import: question write failed", zap.Uint("id", q.ID), zap.Error(err))
			report.Errors++
			continue
		}
		report.Questions++
	}
	for i := range body.Modules {
		m := body.Modules[i]
		if err := s.upsertModule(&m); err != nil {
			logger.Log.Error("import: module write failed", zap.Uint("id", m.ID), zap.Error(err))
			report.Errors++
			continue
		}
		report.Modules++
	}
	for i := range body.UserState {
		st := body.UserState[i]
		if err := s.States.Save(&st); err != nil {
			logger.Log.Error("import: progress write failed", zap.Uint("module", st.ModuleID), zap.Error(err))
			report.Errors++
			continue
		}
		report.States++
	}
	for _, setting := range body.Settings {
		if err := s.Settings.Put(setting.Key, setting.Value); err != nil {
			report.Errors++
		}
	}

	logger.Log.Info("import finished",
		zap.Int("questions", report.Questions),
		zap.Int("modules", report.Modules),
		zap.Int("states", report.States),
		zap.Int("errors", report.Errors))
	return report, nil
}

// ImportReport 导入结果计数
type ImportReport struct {
	Questions int `json:"questions"`
	Modules   int `json:"modules"`
	States    int `json:"states"`
	Errors    int `json:"errors"`
}

func (s *TransferService) upsertQuestion(q *model.Question) error {
	if q.ID == 0 {
		return s.Questions.Create(q)
	}
	return s.Questions.Save(q)
}

func (s *TransferService) upsertModule(m *model.Module) error {
	if m.ID == 0 {
		return s.Modules.Create(m)
	}
	return s.Modules.Save(m)
}

// Backup 把一份全量导出写到存储后端，返回可访问路径
func (s *TransferService) Backup(ctx context.Context) (string, error) {
	doc, err := s.ExportAll(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("backup_%s.json", s.Now().Format("20060102_150405"))
	url, err := s.Storage.Provider.Upload(ctx, name, bytes.NewReader(data), int64(len(data)), "application/json")
	if err != nil {
		return "", err
	}
	logger.Log.Info("backup written", zap.String("object", name))
	return url, nil
}
