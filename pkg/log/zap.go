package log

import (
	"fmt"
	"time"

	"github.com/trackify-io/trackify/config/modules"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006/01/02 15:04:05.000"

var encodings = map[modules.LogFormat]string{
	modules.LogFormatText: "console",
	modules.LogFormatJson: "json",
}

func encoderConfig(format modules.LogFormat) zapcore.EncoderConfig {
	var cfg zapcore.EncoderConfig
	if format == modules.LogFormatJson {
		cfg = zap.NewProductionEncoderConfig()
	} else {
		cfg = zap.NewDevelopmentEncoderConfig()
		cfg.EncodeName = func(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(fmt.Sprintf("%-10s", "["+loggerName+"]"))
		}
	}
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timeLayout))
	}
	return cfg
}

// NewZapLogger builds the process logger and installs it as the zap global.
func NewZapLogger(cfg *modules.LogConfig) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(string(cfg.Level))
	if err != nil {
		return nil, err
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encodings[cfg.Format],
		EncoderConfig:     encoderConfig(cfg.Format),
		OutputPaths:       []string{cfg.File},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if cfg.File == "" {
		zapConfig.OutputPaths = []string{"stdout"}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)

	return logger.Sugar(), nil
}

// Named returns a child of the global logger, or of a no-op logger when l is nil.
func Named(l *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if l == nil {
		l = zap.S()
	}
	return l.Named(name)
}
