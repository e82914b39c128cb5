// Notifier 主程序
// 功能：消费 Kafka 中的通知任务并发送邮件，处理失败的消息转入死信主题
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	notifyapp "github.com/wyfcoding/ecommerce/internal/notification/application"
	"github.com/wyfcoding/ecommerce/internal/notification/infrastructure/mail"
	notifyrepo "github.com/wyfcoding/ecommerce/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/ecommerce/internal/notification/interfaces/events"
	userapp "github.com/wyfcoding/ecommerce/internal/user/application"
	userrepo "github.com/wyfcoding/ecommerce/internal/user/infrastructure/persistence/mysql"
	"github.com/wyfcoding/ecommerce/pkg/config"
	"github.com/wyfcoding/ecommerce/pkg/db"
	"github.com/wyfcoding/ecommerce/pkg/logger"
	"github.com/wyfcoding/ecommerce/pkg/metrics"
	"github.com/wyfcoding/ecommerce/pkg/mq"
)

func main() {
	// 1. 加载配置
	configPath := config.GetEnv("NOTIFIER_CONFIG", "configs/notifier/config.toml")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Kafka.Enabled() {
		fmt.Fprintln(os.Stderr, "kafka.brokers and kafka.topic are required")
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
	logger.Info(ctx, "Starting Notifier",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"topic", cfg.Kafka.Topic,
	)

	// 3. 初始化数据库（收件人查询与发送记录）
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
		if err := database.AutoMigrate(&notifyrepo.NotificationModel{}); err != nil {
			logger.Fatal(ctx, "Failed to migrate database", "error", err)
		}
	}

	// 4. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path, prometheus.DefaultGatherer)
	}

	// 5. 初始化投递器
	dispatcher := notifyapp.NewDispatcher(
		notifyrepo.NewNotificationRepository(database.DB),
		userapp.NewDirectory(userrepo.NewUserRepository(database.DB)),
		mail.NewSender(cfg.SMTP),
		metricsInstance,
	)

	// 6. 初始化 Kafka 消费者与死信队列
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer := mq.NewProducer(kafkaCfg)
	defer producer.Close()
	consumer := mq.NewConsumer(kafkaCfg, cfg.Kafka.Topic, mq.NewDeadLetterQueue(producer, cfg.Kafka.Topic+".dlq"))
	defer consumer.Close()

	// 7. 运行直到收到退出信号
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx, events.NewTaskHandler(dispatcher))
	})
	g.Go(func() error {
		<-gctx.Done()
		if metricsServer == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "Notifier exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "Notifier stopped")
}
