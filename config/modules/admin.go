package modules

import (
	"fmt"
	"net"
)

type AdminConfig struct {
	BaseConfig
	Listen    string          `yaml:"listen" json:"listen" default:"127.0.0.1:9601"`
	TLS       TLS             `yaml:"tls" json:"tls"`
	AccessLog AccessLogConfig `yaml:"access_log" json:"access_log" envconfig:"ACCESS_LOG"`
}

func (cfg AdminConfig) Validate() error {
	if err := cfg.AccessLog.Validate(); err != nil {
		return err
	}
	return validateListen(cfg.Listen)
}

type AccessLogConfig struct {
	Enabled bool      `yaml:"enabled" json:"enabled" default:"true"`
	File    string    `yaml:"file" json:"file" default:"/dev/stdout"`
	Format  LogFormat `yaml:"format" json:"format" default:"text"`
}

func (cfg AccessLogConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.File == "" {
		return fmt.Errorf("access_log.file is required")
	}
	if cfg.Format != LogFormatText && cfg.Format != LogFormatJson {
		return fmt.Errorf("invalid access_log.format: %s", cfg.Format)
	}
	return nil
}

func (cfg AdminConfig) URL() string {
	if !cfg.IsEnabled() {
		return "disabled"
	}
	return ListenAddrToURL(cfg.TLS.Enabled(), cfg.Listen)
}

func (cfg AdminConfig) IsEnabled() bool {
	if cfg.Listen == "" || cfg.Listen == "off" {
		return false
	}
	return true
}

type TLS struct {
	Cert string `yaml:"cert" json:"cert"`
	Key  string `yaml:"key" json:"key"`
}

func (cfg TLS) Enabled() bool {
	return cfg.Cert != "" && cfg.Key != ""
}

type RateLimit struct {
	Quota  uint32 `yaml:"quota" json:"quota" default:"0"`
	Period uint32 `yaml:"period" json:"period" default:"60"`
}

func (cfg RateLimit) Enabled() bool {
	return cfg.Quota > 0 && cfg.Period > 0
}

// TrackerConfig is the public listener receiving events from browsers and trigger adapters.
type TrackerConfig struct {
	BaseConfig
	Listen       string    `yaml:"listen" json:"listen" default:"0.0.0.0:9600"`
	TLS          TLS       `yaml:"tls" json:"tls"`
	MaxBodySize  int64     `yaml:"max_body_size" json:"max_body_size" default:"1048576" envconfig:"MAX_BODY_SIZE"`
	RateLimit    RateLimit `yaml:"rate_limit" json:"rate_limit" envconfig:"RATE_LIMIT"`
	Integrations []string  `yaml:"integrations" json:"integrations" default:"[\"woocommerce\",\"forms\"]"`

	// AllowedOrigins lists the shop origins allowed to post from the browser.
	AllowedOrigins []string        `yaml:"allowed_origins" json:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AccessLog      AccessLogConfig `yaml:"access_log" json:"access_log" envconfig:"ACCESS_LOG"`
	Flush          FlushConfig     `yaml:"flush" json:"flush" envconfig:"FLUSH"`
}

// FlushConfig sizes the worker pool delivering queued events once a request
// has been answered.
type FlushConfig struct {
	Workers   int `yaml:"workers" json:"workers" default:"10"`
	QueueSize int `yaml:"queue_size" json:"queue_size" default:"1000" envconfig:"QUEUE_SIZE"`
}

func (cfg FlushConfig) Validate() error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("flush.workers must be positive")
	}
	if cfg.QueueSize < 0 {
		return fmt.Errorf("flush.queue_size must not be negative")
	}
	return nil
}

func (cfg TrackerConfig) IsEnabled() bool {
	if cfg.Listen == "" || cfg.Listen == "off" {
		return false
	}
	return true
}

func (cfg TrackerConfig) Validate() error {
	if cfg.MaxBodySize <= 0 {
		return fmt.Errorf("max_body_size must be positive")
	}
	if err := cfg.AccessLog.Validate(); err != nil {
		return err
	}
	if err := cfg.Flush.Validate(); err != nil {
		return err
	}
	return validateListen(cfg.Listen)
}

func validateListen(listen string) error {
	if listen == "" || listen == "off" {
		return nil
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return fmt.Errorf("invalid listen '%s': %v", listen, err)
	}
	return nil
}

func ListenAddrToURL(https bool, listen string) string {
	scheme := "http"
	if https {
		scheme = "https"
	}

	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return fmt.Sprintf("%s://%s", scheme, listen)
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return fmt.Sprintf("%s://%s:%s", scheme, host, port)
}
