package modules

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/trackify-io/trackify/config/types"
)

// RedisConfig is optional, an empty host disables every redis backed feature.
type RedisConfig struct {
	BaseConfig
	Host        string         `yaml:"host" json:"host" default:""`
	Port        uint32         `yaml:"port" json:"port" default:"6379"`
	Password    types.Password `yaml:"password" json:"password" default:""`
	Database    uint32         `yaml:"database" json:"database" default:"0"`
	MaxPoolSize uint32         `yaml:"max_pool_size" json:"max_pool_size" default:"0" envconfig:"MAX_POOL_SIZE"`
}

func (cfg RedisConfig) Enabled() bool {
	return cfg.Host != ""
}

func (cfg RedisConfig) GetClient() *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: string(cfg.Password),
		DB:       int(cfg.Database),
		PoolSize: int(cfg.MaxPoolSize),
	}
	return redis.NewClient(options)
}

func (cfg RedisConfig) Validate() error {
	if cfg.Port > 65535 {
		return fmt.Errorf("port must be in the range [0, 65535]")
	}
	return nil
}
