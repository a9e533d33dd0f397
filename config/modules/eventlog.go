package modules

import (
	"fmt"
	"slices"
)

type EventLogLevel string

const (
	EventLogLevelDebug   EventLogLevel = "debug"
	EventLogLevelInfo    EventLogLevel = "info"
	EventLogLevelWarning EventLogLevel = "warning"
	EventLogLevelError   EventLogLevel = "error"
)

var eventLogLevelRanks = map[EventLogLevel]int{
	EventLogLevelDebug:   0,
	EventLogLevelInfo:    1,
	EventLogLevelWarning: 2,
	EventLogLevelError:   3,
}

func (l EventLogLevel) Rank() int {
	rank, ok := eventLogLevelRanks[l]
	if !ok {
		return -1
	}
	return rank
}

type StorageTarget string

const (
	StorageDatabase StorageTarget = "database"
	StorageFile     StorageTarget = "file"
	StorageBoth     StorageTarget = "both"
)

// EventLogConfig configures the delivery log, not the process log.
type EventLogConfig struct {
	BaseConfig
	Enabled         bool          `yaml:"enabled" json:"enabled" default:"true"`
	Level           EventLogLevel `yaml:"level" json:"level" default:"info"`
	RetentionDays   uint32        `yaml:"retention_days" json:"retention_days" default:"30" envconfig:"RETENTION_DAYS"`
	CleanupInterval uint32        `yaml:"cleanup_interval" json:"cleanup_interval" default:"86400" envconfig:"CLEANUP_INTERVAL"`
	Storage         StorageTarget `yaml:"storage" json:"storage" default:"database"`
	File            string        `yaml:"file" json:"file" default:"trackify-events.log"`
}

func (cfg EventLogConfig) WritesDatabase() bool {
	return cfg.Storage == StorageDatabase || cfg.Storage == StorageBoth
}

func (cfg EventLogConfig) WritesFile() bool {
	return cfg.Storage == StorageFile || cfg.Storage == StorageBoth
}

func (cfg EventLogConfig) Validate() error {
	if cfg.Level.Rank() < 0 {
		return fmt.Errorf("invalid level: %s", cfg.Level)
	}
	if !slices.Contains([]StorageTarget{StorageDatabase, StorageFile, StorageBoth}, cfg.Storage) {
		return fmt.Errorf("invalid storage: %s", cfg.Storage)
	}
	if cfg.WritesFile() && cfg.File == "" {
		return fmt.Errorf("file is required for storage %s", cfg.Storage)
	}
	if cfg.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be at least 1")
	}
	if cfg.CleanupInterval < 60 {
		return fmt.Errorf("cleanup_interval must be at least 60 seconds")
	}
	return nil
}
