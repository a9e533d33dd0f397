package modules

import (
	"fmt"
	"slices"

	"github.com/trackify-io/trackify/config/types"
)

type DatabaseDriver string

const (
	DriverPostgres DatabaseDriver = "postgres"
	DriverSQLite   DatabaseDriver = "sqlite3"
)

type DatabaseConfig struct {
	BaseConfig
	Driver      DatabaseDriver `yaml:"driver" json:"driver" default:"postgres"`
	Host        string         `yaml:"host" json:"host" default:"localhost"`
	Port        uint32         `yaml:"port" json:"port" default:"5432"`
	Username    string         `yaml:"username" json:"username" default:"trackify"`
	Password    types.Password `yaml:"password" json:"password" default:""`
	Database    string         `yaml:"database" json:"database" default:"trackify"`
	Parameters  string         `yaml:"parameters" json:"parameters" default:"application_name=trackify&sslmode=disable&connect_timeout=10"`
	Path        string         `yaml:"path" json:"path" default:"trackify.db"`
	MaxPoolSize uint32         `yaml:"max_pool_size" json:"max_pool_size" default:"40" envconfig:"MAX_POOL_SIZE"`
	MaxLifetime uint32         `yaml:"max_life_time" json:"max_life_time" default:"1800" envconfig:"MAX_LIFETIME"`
}

func (cfg DatabaseConfig) GetDSN() string {
	if cfg.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.Path)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)
	if len(cfg.Parameters) > 0 {
		dsn = fmt.Sprintf("%s?%s", dsn, cfg.Parameters)
	}
	return dsn
}

func (cfg DatabaseConfig) Validate() error {
	if !slices.Contains([]DatabaseDriver{DriverPostgres, DriverSQLite}, cfg.Driver) {
		return fmt.Errorf("invalid driver: %s", cfg.Driver)
	}
	if cfg.Port > 65535 {
		return fmt.Errorf("port must be in the range [0, 65535]")
	}
	if cfg.Driver == DriverSQLite && cfg.Path == "" {
		return fmt.Errorf("path is required for driver %s", cfg.Driver)
	}
	return nil
}
