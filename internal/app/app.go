package app

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/controller"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/pkg/configwatcher"
	"exam_prep_backend/pkg/database"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"exam_prep_backend/pkg/security"
	"exam_prep_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	subject  *repository.SubjectRepository
	question *repository.QuestionRepository
	attempt  *repository.QuizAttemptRepository
	video    *repository.VideoRepository
	stats    *repository.StatsRepository
}

type services struct {
	auth           *service.AuthService
	user           *service.UserService
	subject        *service.SubjectService
	question       *service.QuestionService
	quiz           *service.QuizService
	sessionManager *service.QuizSessionManager
	dashboard      *service.DashboardService
	storage        *service.StorageService
	video          *service.VideoService
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	subject   *controller.SubjectController
	question  *controller.QuestionController
	quiz      *controller.QuizController
	sync      *controller.SyncController
	dashboard *controller.DashboardController
	video     *controller.VideoController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		subject:  repository.NewSubjectRepository(db),
		question: repository.NewQuestionRepository(db),
		attempt:  repository.NewQuizAttemptRepository(db),
		video:    repository.NewVideoRepository(db),
		stats:    repository.NewStatsRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.subject = service.NewSubjectService(repos.subject)
	s.question = service.NewQuestionService(repos.question)
	s.quiz = service.NewQuizService(repos.attempt, repos.question, cfg)
	s.sessionManager = service.NewQuizSessionManager(repos.attempt, cfg)
	s.dashboard = service.NewDashboardService(repos.stats, rdb)
	s.video = service.NewVideoService(repos.video, s.storage, rdb)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth, s.user),
		user:      controller.NewUserController(s.user),
		subject:   controller.NewSubjectController(s.subject),
		question:  controller.NewQuestionController(s.question),
		quiz:      controller.NewQuizController(s.quiz, s.sessionManager, s.dashboard),
		sync:      controller.NewSyncController(repos.attempt),
		dashboard: controller.NewDashboardController(s.dashboard),
		video:     controller.NewVideoController(s.video),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 会话心跳：计时推进、用时回写、空闲回收
	go s.sessionManager.Run()

	// 播放量回写
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		for range ticker.C {
			if err := s.video.FlushViewCounts(context.Background()); err != nil {
				logger.Log.Error("flush video views error", zap.Error(err))
			}
		}
	}()

	// 配置热更新：组卷限制等参数改动无需重启
	go configwatcher.WatchConfig(filepath.Join("configs", "config.yaml"), a.Config, func(newCfg interface{}) {
		updated, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		a.Config.Quiz = updated.Quiz
		a.Config.RateLimit = updated.RateLimit
		logger.Log.Info("config reloaded",
			zap.Int("defaultQuestionCount", updated.Quiz.DefaultQuestionCount),
			zap.Int("maxQuestionCount", updated.Quiz.MaxQuestionCount))
		for _, cb := range a.configCallbacks {
			cb(updated)
		}
	})
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

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, repos, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("exam-prep-portal", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
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

	// 停掉会话心跳并回写用时
	if a.services != nil && a.services.sessionManager != nil {
		a.services.sessionManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
