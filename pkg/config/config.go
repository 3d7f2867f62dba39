// Package config loads the service configuration. Values come from a YAML
// file first, then from the process environment (optionally seeded from a
// .env file), then from built-in defaults for anything still empty.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name     string `yaml:"name" env:"APP_NAME"`
		HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
	} `yaml:"app"`
	Log     logger.Config `yaml:"log"`
	Storage struct {
		Driver        string `yaml:"driver" env:"STORAGE_DRIVER"` // sqlite, mysql or mongo
		DSN           string `yaml:"dsn" env:"STORAGE_DSN"`
		MongoURI      string `yaml:"mongo_uri" env:"MONGO_URI"`
		MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE"`
	} `yaml:"storage"`
	Reqs struct {
		SaveRequestType        string `yaml:"save_req_type" env:"SAVE_REQ_TYPE"`
		ApplyRequestType       string `yaml:"apply_req_type" env:"APPLY_REQ_TYPE"`
		InstantiateRequestType string `yaml:"instantiate_req_type" env:"INSTANTIATE_REQ_TYPE"`
	} `yaml:"reqs"`
	Urls struct {
		Redis    string `yaml:"redis" env:"REDIS_URL"`
		Rabbitmq string `yaml:"rabbitmq" env:"RABBITMQ_URL"`
	} `yaml:"urls"`
	Exchange struct {
		Request string `yaml:"request" env:"REQUEST_EXCHANGE"`
		Output  string `yaml:"output" env:"OUTPUT_EXCHANGE"`
	} `yaml:"exchange"`
	Queue struct {
		Request string `yaml:"request" env:"REQUEST_QUEUE"`
		Output  string `yaml:"output" env:"OUTPUT_QUEUE"`
	} `yaml:"queue"`
	Cache struct {
		TTL time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	} `yaml:"cache"`
	Retry struct {
		Count    uint `yaml:"count" env:"RETRY_COUNT"`
		Interval uint `yaml:"interval" env:"RETRY_INTERVAL"` // seconds
	} `yaml:"retry"`
}

// Init reads the YAML file at path, applies the environment on top and fills
// defaults. A missing YAML file or .env file is not an error.
func Init(path string, envFiles ...string) (*Config, error) {
	var cfg Config

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err = yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("error open file: %w", err)
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error load env file %s: %w", envFile, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parse environment: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}

	def(&c.App.Name, "survey-service")
	def(&c.App.HTTPAddr, ":8080")

	def(&c.Log.LogLevel, "info")
	def(&c.Log.AppName, c.App.Name)

	def(&c.Storage.Driver, "sqlite")
	def(&c.Storage.DSN, "survey.db")
	def(&c.Storage.MongoDatabase, "surveys")

	def(&c.Reqs.SaveRequestType, "survey.save")
	def(&c.Reqs.ApplyRequestType, "survey.apply")
	def(&c.Reqs.InstantiateRequestType, "template.instantiate")

	def(&c.Exchange.Request, "survey.requests")
	def(&c.Exchange.Output, "survey.events")
	def(&c.Queue.Request, "survey-service.requests")

	if c.Cache.TTL == 0 {
		c.Cache.TTL = 30 * time.Minute
	}
	if c.Retry.Count == 0 {
		c.Retry.Count = 3
	}
	if c.Retry.Interval == 0 {
		c.Retry.Interval = 1
	}
}

// Validate reports settings that can not work together.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "mysql":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for sql drivers")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Retry.Count > 255 {
		return fmt.Errorf("retry.count must not exceed 255, got %d", c.Retry.Count)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl can not be negative")
	}

	return nil
}
