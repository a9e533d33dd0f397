package providers

import (
	"github.com/trackify-io/trackify/pkg/envconfig"
)

type EnvProvider struct {
	prefix string
	env    map[string]string
}

func (p *EnvProvider) WithEnv(env map[string]string) *EnvProvider {
	p.env = env
	return p
}

func (p *EnvProvider) Load(cfg any) error {
	var reader = envconfig.EnvironmentReader
	if p.env != nil {
		reader = func(key string) (string, bool, error) {
			value, ok := p.env[key]
			return value, ok, nil
		}
	}
	return envconfig.ProcessWithReader(p.prefix, cfg, reader)
}

func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}
