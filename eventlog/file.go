package eventlog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db/entities"
)

// fileSink appends one JSON document per record to a file.
type fileSink struct {
	mux    sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

func newFileSink(filename string) (*fileSink, error) {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return nil, err
	}
	return &fileSink{
		file:   file,
		logger: zerolog.New(file).With().Timestamp().Logger(),
	}, nil
}

func (s *fileSink) write(record *entities.EventLog, level modules.EventLogLevel) {
	s.mux.Lock()
	defer s.mux.Unlock()

	e := s.logger.Log().
		Str("level", string(level)).
		Int64("id", record.ID).
		Str("event_name", record.EventName).
		Str("event_id", record.EventID).
		Str("pixel_id", record.PixelID).
		Int64("event_time", record.EventTime).
		Str("status", record.Status).
		Int("response_code", record.ResponseCode)
	if record.ErrorMessage != "" {
		e = e.Str("error_message", record.ErrorMessage)
	}
	rawJSON(e, "event_data", record.EventData)
	rawJSON(e, "user_data", record.UserData)
	rawJSON(e, "response_data", record.ResponseData)
	e.Send()
}

func rawJSON(e *zerolog.Event, key string, value entities.JSON) {
	if len(value) > 0 {
		e.RawJSON(key, value)
	}
}

func (s *fileSink) truncate() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.file.Truncate(0)
}

func (s *fileSink) close() error {
	return s.file.Close()
}
