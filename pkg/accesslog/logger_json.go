package accesslog

import (
	"io"

	"github.com/rs/zerolog"
)

const timeLayout = "2006/01/02 15:04:05.000"

type JsonLogger struct {
	logger *zerolog.Logger
}

func NewJsonLogger(name string, writer io.Writer) *JsonLogger {
	logger := zerolog.New(writer).With().Str("name", name).Logger()

	return &JsonLogger{
		logger: &logger,
	}
}

func (l *JsonLogger) Log(entry *Entry) {
	l.logger.Log().Str("ts", zerolog.TimestampFunc().Format(timeLayout)).EmbedObject(entry).Send()
}
