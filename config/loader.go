package config

import (
	"strings"

	"github.com/trackify-io/trackify/config/providers"
)

// Loader is configuration loader
type Loader struct {
	cfg         *Config
	envPrefix   string
	filename    string
	fileContent []byte
	env         map[string]string
}

func NewLoader(cfg *Config) *Loader {
	return &Loader{cfg: cfg}
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

func (l *Loader) WithFilename(filename string) *Loader {
	l.filename = filename
	return l
}

func (l *Loader) WithFileContent(content []byte) *Loader {
	l.fileContent = content
	return l
}

// WithEnv replaces the process environment, used by tests.
func (l *Loader) WithEnv(env map[string]string) *Loader {
	l.env = env
	return l
}

func (l *Loader) load(module string, value any) error {
	err := providers.NewYAMLProvider(l.filename, l.fileContent).
		WithKey(strings.ToLower(module)).
		Load(value)
	if err != nil {
		return err
	}

	if l.envPrefix != "" {
		envPrefix := l.envPrefix
		if module != "" {
			envPrefix = l.envPrefix + "_" + module
		}
		err = providers.NewEnvProvider(envPrefix).
			WithEnv(l.env).
			Load(value)
		if err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) Load() error {
	if err := l.load("", l.cfg); err != nil {
		return err
	}
	return l.cfg.PostProcess()
}

func Load(filename string, cfg *Config) error {
	return NewLoader(cfg).WithEnvPrefix("TRACKIFY").WithFilename(filename).Load()
}
