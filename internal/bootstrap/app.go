package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"expense-tracker-api/internal/config"
	"expense-tracker-api/internal/model"
	"expense-tracker-api/internal/objectstore"
	gcsClient "expense-tracker-api/internal/platform/gcs"
	mysqlClient "expense-tracker-api/internal/platform/mysql"
	rabbitmqClient "expense-tracker-api/internal/platform/rabbitmq"
	redisClient "expense-tracker-api/internal/platform/redis"
	sqliteClient "expense-tracker-api/internal/platform/sqlite"
	"expense-tracker-api/internal/worker"
)

// App holds the long-lived handles shared by all requests. Redis, MQConn,
// Receipts and CleanupWorker are nil when the matching feature is not configured.
type App struct {
	Config        *config.Config
	Log           *logrus.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Receipts      objectstore.Store
	CleanupWorker *worker.ReceiptCleanupWorker

	closers   []func() error
	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Log:       log,
		StartedAt: time.Now(),
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.User{}, &model.Expense{}); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if redisCli != nil {
		a.Redis = redisCli
		a.closers = append(a.closers, redisCli.Close)
	} else {
		log.Info("redis address not set, expense list cache disabled")
	}

	if cfg.Storage.Bucket != "" {
		client, err := gcsClient.New(ctx, cfg.Storage.CredentialsFile)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		store := objectstore.NewGCSStore(client, cfg.Storage.Bucket)
		a.Receipts = store
		a.closers = append(a.closers, store.Close)
	} else {
		log.Info("storage bucket not set, receipt uploads disabled")
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ReceiptCleanupQueue)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if mqConn != nil {
		a.MQConn = mqConn
		a.closers = append(a.closers, mqConn.Close)
	} else {
		log.Info("rabbitmq url not set, receipt cleanup disabled")
	}

	if a.MQConn != nil && a.Receipts != nil {
		cleanupWorker := worker.NewReceiptCleanupWorker(a.MQConn, a.Receipts, cfg.RabbitMQ.ReceiptCleanupQueue, log)
		if err := cleanupWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start receipt cleanup worker failed: %w", err)
		}
		a.CleanupWorker = cleanupWorker
	}

	return a, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "sqlite" {
		return sqliteClient.New(ctx, cfg.DatabaseDSN())
	}
	return mysqlClient.New(ctx, cfg.DatabaseDSN())
}

// Close stops the worker and releases handles in reverse order of creation.
func (a *App) Close() error {
	if a.CleanupWorker != nil {
		a.CleanupWorker.Close()
	}
	var closeErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			closeErr = err
		}
	}
	a.closers = nil
	return closeErr
}
