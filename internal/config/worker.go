package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type WorkerRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type QueueConfig struct {
	ClaimInterval time.Duration
	BlockTimeout  time.Duration
	BatchSize     int
}

type LoggingConfig struct {
	Level string
}

type WorkerConfig struct {
	Environment string
	Redis       WorkerRedisConfig
	Storage     StorageConfig
	Queues      QueueConfig
	Logging     LoggingConfig
}

func LoadWorker() (*WorkerConfig, error) {
	v := newViper("worker", "FLATFINDER_WORKER")
	setWorkerDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg WorkerConfig
	if err := unmarshal(v, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *WorkerConfig) Validate() error {
	var errs []error
	if c.Redis.Stream == "" || c.Redis.Group == "" || c.Redis.Consumer == "" {
		errs = append(errs, errors.New("redis.stream, redis.group and redis.consumer are required"))
	}
	if c.Storage.BucketPhotos == "" {
		errs = append(errs, errors.New("storage.bucketphotos is required"))
	}
	if c.Queues.ClaimInterval <= 0 {
		errs = append(errs, errors.New("queues.claiminterval must be positive"))
	}
	return errors.Join(errs...)
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "flatfinder:tasks")
	v.SetDefault("redis.group", "flatfinder-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketphotos", "flatfinder-photos")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxphotobytes", 10<<20)

	v.SetDefault("queues.claiminterval", "30s")
	v.SetDefault("queues.blocktimeout", "5s")
	v.SetDefault("queues.batchsize", 10)

	v.SetDefault("logging.level", "info")
}
