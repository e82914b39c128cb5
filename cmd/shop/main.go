// Shop 主程序
// 功能：商品目录、购物车、下单结算、支付回调与用户账号的 HTTP API，
// 并在进程内运行通知发件箱中继
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
	"gorm.io/gorm"

	cartapp "github.com/wyfcoding/ecommerce/internal/cart/application"
	cartrepo "github.com/wyfcoding/ecommerce/internal/cart/infrastructure/persistence/mysql"
	carthttp "github.com/wyfcoding/ecommerce/internal/cart/interfaces/http"
	catalogapp "github.com/wyfcoding/ecommerce/internal/catalog/application"
	catalogcache "github.com/wyfcoding/ecommerce/internal/catalog/infrastructure/cache"
	catalogrepo "github.com/wyfcoding/ecommerce/internal/catalog/infrastructure/persistence/mysql"
	cataloghttp "github.com/wyfcoding/ecommerce/internal/catalog/interfaces/http"
	notifyapp "github.com/wyfcoding/ecommerce/internal/notification/application"
	"github.com/wyfcoding/ecommerce/internal/notification/infrastructure/mail"
	"github.com/wyfcoding/ecommerce/internal/notification/infrastructure/messaging"
	notifyrepo "github.com/wyfcoding/ecommerce/internal/notification/infrastructure/persistence/mysql"
	notifyhttp "github.com/wyfcoding/ecommerce/internal/notification/interfaces/http"
	orderapp "github.com/wyfcoding/ecommerce/internal/order/application"
	orderrepo "github.com/wyfcoding/ecommerce/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/wyfcoding/ecommerce/internal/order/interfaces/http"
	paymentapp "github.com/wyfcoding/ecommerce/internal/payment/application"
	"github.com/wyfcoding/ecommerce/internal/payment/infrastructure/gateway"
	paymentrepo "github.com/wyfcoding/ecommerce/internal/payment/infrastructure/persistence/mysql"
	paymenthttp "github.com/wyfcoding/ecommerce/internal/payment/interfaces/http"
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
	"github.com/wyfcoding/ecommerce/pkg/mq"
	"github.com/wyfcoding/ecommerce/pkg/ratelimit"
	"github.com/wyfcoding/ecommerce/pkg/token"
)

// handlers 需要挂载到 HTTP 路由的处理器
type handlers struct {
	auth         *userhttp.AuthHandler
	users        *userhttp.UserHandler
	catalog      *cataloghttp.CatalogHandler
	cart         *carthttp.CartHandler
	orders       *orderhttp.OrderHandler
	payments     *paymenthttp.PaymentHandler
	notification *notifyhttp.NotificationHandler
}

func main() {
	// 1. 加载配置
	configPath := config.GetEnv("SHOP_CONFIG", "configs/shop/config.toml")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting Shop",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate(database.DB); err != nil {
			logger.Fatal(ctx, "Failed to migrate database", "error", err)
		}
	}

	// 4. 初始化 Redis
	redisCfg := cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisCache, err := cache.New(redisCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 5. 初始化限流器
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 6. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer)
	}

	// 7. 初始化仓储
	userRepo := userrepo.NewUserRepository(database.DB)
	productRepo := catalogrepo.NewProductRepository(database.DB)
	categoryRepo := catalogrepo.NewCategoryRepository(database.DB)
	cartRepo := cartrepo.NewCartRepository(database.DB)
	orderRepo := orderrepo.NewOrderRepository(database.DB)
	paymentRepo := paymentrepo.NewPaymentRepository(database.DB)
	notificationRepo := notifyrepo.NewNotificationRepository(database.DB)
	outboxMgr := outbox.NewManager(database.DB, logger.Get())
	outboxStore := notifyrepo.NewOutboxStore(database.DB, outboxMgr, cfg.Kafka.Topic)

	// 8. 初始化应用服务
	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	directory := userapp.NewDirectory(userRepo)

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

	productService := catalogapp.NewProductService(productRepo, categoryRepo, catalogcache.NewProductCache(redisCache, 0))
	categoryService := catalogapp.NewCategoryService(categoryRepo)
	cartService := cartapp.NewCartService(cartRepo, productRepo)

	paymentService := paymentapp.NewPaymentService(
		orderRepo,
		paymentRepo,
		gateway.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.WebhookSecret),
		database,
		outboxStore,
		directory,
		paymentapp.Settings{Currency: cfg.Payment.Currency, BaseURL: cfg.Payment.BaseURL},
		metricsInstance,
	)
	orderCommands := orderapp.NewOrderCommandService(
		orderRepo,
		cartRepo,
		productRepo,
		database,
		paymentService,
		outboxStore,
		redisCache,
		cfg.Checkout.LockTTL,
		metricsInstance,
	)
	orderQueries := orderapp.NewOrderQueryService(orderRepo)

	// 9. 通知投递：配置 Kafka 时发布给 notifier，否则在进程内直接发送
	var deliverer notifyapp.Deliverer
	var producer *mq.KafkaProducer
	if cfg.Kafka.Enabled() {
		producer = mq.NewProducer(mq.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			SessionTimeout: cfg.Kafka.SessionTimeout,
			MaxRetries:     cfg.Kafka.MaxRetries,
			RetryBackoff:   cfg.Kafka.RetryBackoff,
		})
		defer producer.Close()
		deliverer = messaging.NewKafkaDeliverer(producer, cfg.Kafka.Topic)
	} else {
		deliverer = notifyapp.NewDispatcher(notificationRepo, directory, mail.NewSender(cfg.SMTP), metricsInstance)
	}
	relay := notifyapp.NewRelay(deliverer, outboxStore, notifyapp.RelayConfig{Retention: cfg.Outbox.Retention}, metricsInstance)
	outboxProcessor := outbox.NewProcessor(outboxMgr, relay.Push, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx, outboxProcessor); err != nil {
			logger.Error(ctx, "Outbox relay exited", "error", err)
		}
	}()

	// 10. 创建 HTTP 服务器
	httpServer := createHTTPServer(cfg, tokens, rateLimiter, metricsInstance, handlers{
		auth:         userhttp.NewAuthHandler(authService),
		users:        userhttp.NewUserHandler(userapp.NewUserService(userRepo)),
		catalog:      cataloghttp.NewCatalogHandler(productService, categoryService),
		cart:         carthttp.NewCartHandler(cartService),
		orders:       orderhttp.NewOrderHandler(orderCommands, orderQueries),
		payments:     paymenthttp.NewPaymentHandler(paymentService),
		notification: notifyhttp.NewNotificationHandler(notifyapp.NewNotificationQueryService(notificationRepo)),
	})

	// 11. 启动 HTTP 服务器
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 12. 优雅关停
	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down Shop")

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
		logger.Warn(shutdownCtx, "Outbox relay did not stop in time")
	}

	logger.Info(context.Background(), "Shop stopped")
}

// migrate 自动迁移 shop 使用的全部表
func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&userrepo.UserModel{},
		&userrepo.ProfileModel{},
		&catalogrepo.CategoryModel{},
		&catalogrepo.ProductModel{},
		&cartrepo.CartModel{},
		&cartrepo.CartItemModel{},
		&orderrepo.OrderModel{},
		&orderrepo.OrderItemModel{},
		&paymentrepo.PaymentModel{},
		&notifyrepo.NotificationModel{},
		&outbox.OutboxMessage{},
	)
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	tokens *token.Manager,
	rateLimiter ratelimit.RateLimiter,
	m *metrics.Metrics,
	h handlers,
) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 添加中间件
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinMetricsMiddleware(m))
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit, tokens, m))

	// 注册路由
	api := router.Group("/api")
	groups := middleware.NewRouteGroups(api, tokens)
	h.auth.RegisterRoutes(api)
	h.users.RegisterRoutes(groups)
	h.catalog.RegisterRoutes(groups)
	h.cart.RegisterRoutes(groups.Authed)
	h.orders.RegisterRoutes(groups)
	h.payments.RegisterRoutes(groups)
	h.notification.RegisterRoutes(groups.Authed)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
