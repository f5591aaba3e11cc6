package service

import (
	"sync"

	"limit_backend/internal/config"
	"limit_backend/internal/util"
	"limit_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 单运营账号登录。口令在启动时哈希进内存，
// 配置文件里保留明文但进程内只比对哈希。
type AuthService struct {
	mu           sync.RWMutex
	cfg          *config.Config
	username     string
	passwordHash []byte
}

func NewAuthService(cfg *config.Config) (*AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Operator.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		cfg:          cfg,
		username:     cfg.Operator.Username,
		passwordHash: hash,
	}, nil
}

// Login 校验凭据并签发 JWT
func (s *AuthService) Login(username, password string) (string, error) {
	s.mu.RLock()
	wantUser, hash := s.username, s.passwordHash
	s.mu.RUnlock()

	if username != wantUser {
		return "", util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(username, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		logger.Log.Error("token generation failed", zap.Error(err))
		return "", err
	}
	return token, nil
}

// Reload 配置热更新时替换凭据
func (s *AuthService) Reload(cfg *config.Config) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Operator.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.username = cfg.Operator.Username
	s.passwordHash = hash
	s.mu.Unlock()
	logger.Log.Info("operator credentials reloaded")
	return nil
}
