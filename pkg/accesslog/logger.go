package accesslog

import (
	"errors"
	"io"
	"os"

	"github.com/trackify-io/trackify/config/modules"
)

type AccessLogger interface {
	Log(entry *Entry)
}

// NewAccessLogger returns nil when access logging is disabled.
func NewAccessLogger(name string, cfg modules.AccessLogConfig) (AccessLogger, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.File == "" {
		return nil, errors.New("accesslog file is required")
	}

	var writer io.Writer = os.Stdout
	if cfg.File != "/dev/stdout" {
		file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
		if err != nil {
			return nil, err
		}
		writer = file
	}

	switch cfg.Format {
	case modules.LogFormatText:
		return NewTextLogger(name, writer), nil
	case modules.LogFormatJson:
		return NewJsonLogger(name, writer), nil
	default:
		return nil, errors.New("invalid format: " + string(cfg.Format))
	}
}
