package accesslog

import (
	"io"

	"github.com/rs/zerolog"
)

type TextLogger struct {
	logger *zerolog.Logger
}

func NewTextLogger(name string, writer io.Writer) *TextLogger {
	output := zerolog.ConsoleWriter{
		Out:        writer,
		NoColor:    true,
		TimeFormat: timeLayout,
	}
	output.PartsOrder = []string{
		"ts",
		"name",
		zerolog.MessageFieldName,
	}
	output.FieldsExclude = []string{"ts", "name"}
	logger := zerolog.New(output).With().Str("name", "["+name+"]").Logger()
	return &TextLogger{
		logger: &logger,
	}
}

func (l *TextLogger) Log(entry *Entry) {
	l.logger.Log().Str("ts", zerolog.TimestampFunc().Format(timeLayout)).Msg(entry.String())
}
