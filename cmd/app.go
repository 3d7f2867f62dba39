package main

import (
	"context"
	"fmt"

	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/Koyo-os/survey-service/internal/repository"
	"github.com/Koyo-os/survey-service/internal/service"
	"github.com/Koyo-os/survey-service/internal/template"
	"github.com/Koyo-os/survey-service/pkg/closer"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/health"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/Koyo-os/survey-service/pkg/retrier"
	"github.com/Koyo-os/survey-service/pkg/transport/casher"
	"github.com/Koyo-os/survey-service/pkg/transport/consumer"
	"github.com/Koyo-os/survey-service/pkg/transport/publisher"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// storage is a survey store that also owns its schema and connection.
type storage interface {
	service.Store
	Migrate(ctx context.Context) error
	IsHealthy() bool
	Close() error
}

type app struct {
	service  *service.Service
	consumer *consumer.Consumer
	health   *health.HealthChecker
	closers  *closer.CloserGroup
}

// build connects every configured dependency. Redis and RabbitMQ are
// optional: without them the cache is skipped and events are not published.
func build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{
		health:  health.NewHealthChecker(log.Named("health")),
		closers: closer.NewCloserGroup(),
	}

	retry := retrier.RetrierOpts{Count: cfg.Retry.Count, Interval: cfg.Retry.Interval}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers.Add(store)
	a.health.Add("storage", store)

	if err := store.Migrate(ctx); err != nil {
		a.closers.Close()
		return nil, err
	}

	var cash service.Casher = service.NopCasher{}
	if cfg.Urls.Redis != "" {
		c, err := connectRedis(ctx, cfg, log, retry)
		if err != nil {
			a.closers.Close()
			return nil, err
		}
		a.closers.Add(c)
		a.health.Add("cache", c)
		cash = c
	}

	var pub service.Publisher = service.NopPublisher{}
	if cfg.Urls.Rabbitmq != "" {
		conns, err := retrier.MultiConnects(2, func() (*amqp.Connection, error) {
			return amqp.Dial(cfg.Urls.Rabbitmq)
		}, &retry)
		if err != nil {
			a.closers.Close()
			return nil, fmt.Errorf("error connect to rabbitmq: %w", err)
		}

		p, err := publisher.Init(cfg, log.Named("publisher"), conns[0])
		if err != nil {
			conns[1].Close()
			a.closers.Close()
			return nil, err
		}
		a.closers.Add(p)
		a.health.Add("publisher", p)
		pub = p

		c, err := consumer.Init(cfg, log.Named("consumer"), conns[1])
		if err != nil {
			a.closers.Close()
			return nil, err
		}
		a.closers.Add(c)
		if err := c.SubscribeRequests(); err != nil {
			a.closers.Close()
			return nil, err
		}
		a.health.Add("consumer", c)
		a.consumer = c
	} else {
		log.Warn("rabbitmq url is not set, events will not be published")
	}

	a.service = service.Init(
		store,
		cash,
		pub,
		template.NewInstantiator(store),
		registry.Default(),
		log.Named("service"),
		retry,
	)

	return a, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage, error) {
	count, interval := uint8(cfg.Retry.Count), cfg.Retry.Interval

	if cfg.Storage.Driver == "mongo" {
		client, err := retrier.Connect(count, interval, func() (*mongo.Client, error) {
			return repository.ConnectMongo(ctx, cfg.Storage.MongoURI)
		})
		if err != nil {
			return nil, fmt.Errorf("error connect to mongo: %w", err)
		}
		return repository.NewMongoStore(client, cfg.Storage.MongoDatabase, log.Named("mongo")), nil
	}

	db, err := retrier.Connect(count, interval, func() (*gorm.DB, error) {
		return repository.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	})
	if err != nil {
		log.Error("error connect to database",
			zap.String("driver", cfg.Storage.Driver),
			zap.Error(err))
		return nil, fmt.Errorf("error connect to %s: %w", cfg.Storage.Driver, err)
	}

	return repository.Init(db, log.Named("repository")), nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger, retry retrier.RetrierOpts) (*casher.Casher, error) {
	opts, err := redis.ParseURL(cfg.Urls.Redis)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := retrier.Do(uint8(retry.Count), retry.Interval, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connect to redis: %w", err)
	}

	return casher.Init(client, log.Named("cache"), cfg.Cache.TTL), nil
}
