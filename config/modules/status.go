package modules

// StatusConfig is the internal listener serving health checks and runtime
// information.
type StatusConfig struct {
	BaseConfig
	Listen         string `yaml:"listen" json:"listen" default:"127.0.0.1:9602"`
	DebugEndpoints bool   `yaml:"debug_endpoints" json:"debug_endpoints" default:"true" envconfig:"DEBUG_ENDPOINTS"`
}

func (cfg StatusConfig) Validate() error {
	return validateListen(cfg.Listen)
}

func (cfg StatusConfig) IsEnabled() bool {
	if cfg.Listen == "" || cfg.Listen == "off" {
		return false
	}
	return true
}

func (cfg StatusConfig) URL() string {
	if !cfg.IsEnabled() {
		return "disabled"
	}
	return ListenAddrToURL(false, cfg.Listen)
}
