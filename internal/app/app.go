package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"limit_backend/internal/config"
	"limit_backend/internal/controller"
	"limit_backend/internal/grading"
	"limit_backend/internal/repository"
	"limit_backend/internal/service"
	"limit_backend/pkg/configwatcher"
	"limit_backend/pkg/database"
	"limit_backend/pkg/logger"
	"limit_backend/pkg/monitoring"
	"limit_backend/pkg/security"
	"limit_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	question *repository.QuestionRepository
	module   *repository.ModuleRepository
	state    *repository.UserStateRepository
	setting  *repository.SettingRepository
}

type services struct {
	auth      *service.AuthService
	storage   *service.StorageService
	lifecycle *service.LifecycleService
	session   *service.SessionService
	question  *service.QuestionService
	module    *service.ModuleService
	transfer  *service.TransferService
	settings  *service.SettingsService
}

type controllers struct {
	auth     *controller.AuthController
	question *controller.QuestionController
	module   *controller.ModuleController
	session  *controller.SessionController
	transfer *controller.TransferController
	settings *controller.SettingsController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		question: repository.NewQuestionRepository(db),
		module:   repository.NewModuleRepository(db),
		state:    repository.NewUserStateRepository(db),
		setting:  repository.NewSettingRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	auth, err := service.NewAuthService(cfg)
	if err != nil {
		return nil, err
	}
	s.auth = auth

	s.storage = service.NewStorageService(cfg)

	locks := service.NewModuleLocks()
	s.lifecycle = service.NewLifecycleService(repos.module, repos.state, locks)

	bufferTTL := time.Duration(cfg.Exam.BufferTTLMinutes) * time.Minute
	if bufferTTL <= 0 {
		bufferTTL = 4 * time.Hour
	}
	s.session = service.NewSessionService(
		repos.question, repos.module, repos.state,
		s.lifecycle, grading.NewGrader(nil), locks, rdb, bufferTTL,
	)
	s.lifecycle.DiscardProgress = s.session.DiscardModule

	s.question = service.NewQuestionService(repos.question)
	s.module = service.NewModuleService(repos.module, repos.question, repos.state)
	s.transfer = service.NewTransferService(repos.question, repos.module, repos.state, repos.setting, s.storage)
	s.settings = service.NewSettingsService(repos.setting)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		question: controller.NewQuestionController(s.question),
		module:   controller.NewModuleController(s.module, s.lifecycle),
		session:  controller.NewSessionController(s.session, s.lifecycle),
		transfer: controller.NewTransferController(s.transfer),
		settings: controller.NewSettingsController(s.settings),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 周期巡检：过期考试的隐藏/锁定，超时会话的收卷
func (a *App) startBackgroundTasks(s *services) {
	interval := time.Duration(a.Config.Exam.SweepIntervalSec) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		for range ticker.C {
			if err := s.lifecycle.SweepExpired(); err != nil {
				logger.Log.Error("lifecycle sweep error", zap.Error(err))
			}
			s.session.SubmitOverdue()
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis 可选，连不上退化为无缓冲镜像模式
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, exam buffer mirroring disabled", zap.Error(err))
			rdb = nil
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
		log.Fatalf("Failed to initialize services: %v", err)
	}
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("limit-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/exports", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	// 配置热更新，目前只有运营凭据可以不重启替换
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		if err := services.auth.Reload(newCfg); err != nil {
			logger.Log.Error("config reload failed", zap.Error(err))
		}
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
