// Todo 主程序
// 功能：账号注册登录与个人待办事项 API，管理员可查看全部用户及其待办
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"golang.org/x/crypto/bcrypt"

	notifyapp "github.com/wyfcoding/ecommerce/internal/notification/application"
	"github.com/wyfcoding/ecommerce/internal/notification/infrastructure/mail"
	notifyrepo "github.com/wyfcoding/ecommerce/internal/notification/infrastructure/persistence/mysql"
	todoapp "github.com/wyfcoding/ecommerce/internal/todo/application"
	todorepo "github.com/wyfcoding/ecommerce/internal/todo/infrastructure/persistence/mysql"
	todohttp "github.com/wyfcoding/ecommerce/internal/todo/interfaces/http"
	userapp "github.com/wyfcoding/ecommerce/internal/user/application"
	userrepo "github.com/wyfcoding/ecommerce/internal/user/infrastructure/persistence/mysql"
	"github.com/wyfcoding/ecommerce/internal/user/infrastructure/security"
	userhttp "github.com/wyfcoding/ecommerce/internal/user/interfaces/http"
	"github.com/wyfcoding/ecommerce/pkg/cache"
	"github.com/wyfcoding/ecommerce/pkg/config"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/ratelimit"
	"github.com/wyfcoding/ecommerce/pkg/token"
)

func main() {
	// 1. 加载配置
	configPath := config.GetEnv("TODO_CONFIG", "configs/todo/config.toml")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting Todo",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(
			&userrepo.UserModel{},
			&userrepo.ProfileModel{},
			&todorepo.TodoModel{},
			&notifyrepo.NotificationModel{},
			&outbox.OutboxMessage{},
		); err != nil {
			logger.Fatal(ctx, "Failed to migrate database", "error", err)
		}
	}

	// 4. 初始化 Redis 与限流器
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 5. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer)
	}

	// 6. 初始化仓储与应用服务
	userRepo := userrepo.NewUserRepository(database.DB)
	notificationRepo := notifyrepo.NewNotificationRepository(database.DB)
	outboxMgr := outbox.NewManager(database.DB, logger.Get())
	outboxStore := notifyrepo.NewOutboxStore(database.DB, outboxMgr, "")
	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	authService := userapp.NewAuthService(
		userRepo,
		database,
		security.NewBcryptHasher(bcrypt.DefaultCost),
		security.NewTOTPProvider(cfg.Auth.Issuer, cfg.Auth.ResetOTPPeriod),
		tokens,
		outboxStore,
		userapp.AuthSettings{
			AccessTokenTTL:           cfg.Auth.AccessTokenTTL,
			VerifyTokenTTL:           cfg.Auth.VerifyTokenTTL,
			ResetWindow:              cfg.Auth.ResetWindow,
			RequireEmailVerification: cfg.Auth.RequireEmailVerification,
			VerifyURL:                cfg.Auth.VerifyURL,
		},
	)
	if cfg.Auth.AdminEmail != "" {
		if err := authService.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal(ctx, "Failed to seed admin account", "error", err)
		}
	}
	todoService := todoapp.NewTodoService(todorepo.NewTodoRepository(database.DB), userRepo)

	// 7. 验证与重置邮件在进程内投递
	dispatcher := notifyapp.NewDispatcher(notificationRepo, userapp.NewDirectory(userRepo), mail.NewSender(cfg.SMTP), metricsInstance)
	relay := notifyapp.NewRelay(dispatcher, outboxStore, notifyapp.RelayConfig{Retention: cfg.Outbox.Retention}, metricsInstance)
	outboxProcessor := outbox.NewProcessor(outboxMgr, relay.Push, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx, outboxProcessor); err != nil {
			logger.Error(ctx, "Outbox relay exited", "error", err)
		}
	}()

	// 8. 创建并启动 HTTP 服务器
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinMetricsMiddleware(metricsInstance))
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit, tokens, metricsInstance))

	api := router.Group("/api")
	userhttp.NewAuthHandler(authService).RegisterRoutes(api)
	todohttp.NewTodoHandler(todoService).RegisterRoutes(middleware.NewRouteGroups(api, tokens))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 9. 优雅关停
	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down Todo")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "Metrics server shutdown error", "error", err)
		}
	}
	select {
	case <-relayDone:
	case <-shutdownCtx.Done():
	}

	logger.Info(context.Background(), "Todo stopped")
}
