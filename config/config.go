package config

import (
	"encoding/json"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/config/types"
)

var _ types.Config = &Config{}

// Config Configuration
type Config struct {
	modules.BaseConfig
	Log      modules.LogConfig      `yaml:"log" json:"log" envconfig:"LOG"`
	Database modules.DatabaseConfig `yaml:"database" json:"database" envconfig:"DATABASE"`
	Redis    modules.RedisConfig    `yaml:"redis" json:"redis" envconfig:"REDIS"`
	Admin    modules.AdminConfig    `yaml:"admin" json:"admin" envconfig:"ADMIN"`
	Tracker  modules.TrackerConfig  `yaml:"tracker" json:"tracker" envconfig:"TRACKER"`
	Status   modules.StatusConfig   `yaml:"status" json:"status" envconfig:"STATUS"`
	Tracking modules.TrackingConfig `yaml:"tracking" json:"tracking" envconfig:"TRACKING"`
	Logging  modules.EventLogConfig `yaml:"logging" json:"logging" envconfig:"LOGGING"`
	Metrics  modules.MetricsConfig  `yaml:"metrics" json:"metrics" envconfig:"METRICS"`
}

func (cfg *Config) modules() map[string]types.Config {
	return map[string]types.Config{
		"log":      &cfg.Log,
		"database": &cfg.Database,
		"redis":    &cfg.Redis,
		"admin":    &cfg.Admin,
		"tracker":  &cfg.Tracker,
		"status":   &cfg.Status,
		"tracking": &cfg.Tracking,
		"logging":  &cfg.Logging,
		"metrics":  &cfg.Metrics,
	}
}

func (cfg *Config) PostProcess() error {
	for name, module := range cfg.modules() {
		if err := module.PostProcess(); err != nil {
			return errors.Wrapf(err, "%s", name)
		}
	}
	return nil
}

func (cfg Config) String() string {
	bytes, err := json.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	return string(bytes)
}

func (cfg Config) Validate() error {
	if err := cfg.Log.Validate(); err != nil {
		return err
	}
	if err := cfg.Database.Validate(); err != nil {
		return err
	}
	if err := cfg.Redis.Validate(); err != nil {
		return err
	}
	if err := cfg.Admin.Validate(); err != nil {
		return err
	}
	if err := cfg.Tracker.Validate(); err != nil {
		return err
	}
	if err := cfg.Status.Validate(); err != nil {
		return err
	}
	if err := cfg.Tracking.Validate(); err != nil {
		return errors.Wrap(err, "tracking")
	}
	if err := cfg.Logging.Validate(); err != nil {
		return errors.Wrap(err, "logging")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

func New() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	if err := cfg.PostProcess(); err != nil {
		panic(err)
	}
	return &cfg
}
