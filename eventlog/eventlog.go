// Package eventlog records every delivery attempt and keeps the daily
// aggregates used by the admin dashboard.
package eventlog

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/db/query"
	"github.com/trackify-io/trackify/pkg/errs"
	"github.com/trackify-io/trackify/pkg/log"
	"github.com/trackify-io/trackify/pkg/types"
	"github.com/trackify-io/trackify/utils"
	"go.uber.org/zap"
)

const (
	DefaultLimit           = 100
	DefaultAnalyticsWindow = 30
)

// Filters narrows GetRecentLogs. Dates use the YYYY-MM-DD layout and are
// interpreted in UTC, DateTo includes the whole day.
type Filters struct {
	EventName string `json:"event_name"`
	PixelID   string `json:"pixel_id"`
	Status    string `json:"status"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`
}

type Logger struct {
	cfg  modules.EventLogConfig
	db   *db.DB
	file *fileSink
	log  *zap.SugaredLogger
	now  func() time.Time
}

type Option func(*Logger)

// WithClock overrides the time source used for aggregate dates.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

func New(cfg modules.EventLogConfig, db *db.DB, opts ...Option) (*Logger, error) {
	l := &Logger{
		cfg: cfg,
		db:  db,
		log: log.Named(nil, "eventlog"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if cfg.WritesFile() {
		sink, err := newFileSink(cfg.File)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open event log file %s", cfg.File)
		}
		l.file = sink
	}
	return l, nil
}

func (l *Logger) today() time.Time {
	t := l.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Enabled reports whether a record at level would be written.
func (l *Logger) Enabled(level modules.EventLogLevel) bool {
	return l.cfg.Enabled && level.Rank() >= l.cfg.Level.Rank()
}

// Log writes record and counts it towards today's aggregate in the same
// transaction. ok is false when the record was filtered out or failed to
// persist.
func (l *Logger) Log(ctx context.Context, record *entities.EventLog, level modules.EventLogLevel) (id int64, ok bool, err error) {
	if !l.Enabled(level) {
		return 0, false, nil
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = types.NewTime(l.now())
	}

	if l.cfg.WritesDatabase() {
		date := l.today().Format(entities.DateLayout)
		err = l.db.TX(ctx, func(ctx context.Context) error {
			if err := l.db.EventLogs.Insert(ctx, record); err != nil {
				return err
			}
			return l.db.Analytics.Increment(ctx, date, record.EventName, record.PixelID, record.Status)
		})
		if err != nil {
			l.log.Errorf("failed to write event log for %s (pixel %s): %v", record.EventID, record.PixelID, err)
			return 0, false, err
		}
	}

	if l.file != nil {
		l.file.write(record, level)
	}

	return record.ID, true, nil
}

// GetRecentLogs returns up to limit records, newest first.
func (l *Logger) GetRecentLogs(ctx context.Context, limit int, filters Filters) ([]*entities.EventLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var q query.EventLogQuery
	if filters.EventName != "" {
		q.EventName = utils.Pointer(filters.EventName)
	}
	if filters.PixelID != "" {
		q.PixelID = utils.Pointer(filters.PixelID)
	}
	if filters.Status != "" {
		q.Status = utils.Pointer(filters.Status)
	}
	if filters.DateFrom != "" {
		from, err := parseDate("date_from", filters.DateFrom)
		if err != nil {
			return nil, err
		}
		q.CreatedFrom = utils.Pointer(from.UnixMilli())
	}
	if filters.DateTo != "" {
		to, err := parseDate("date_to", filters.DateTo)
		if err != nil {
			return nil, err
		}
		q.CreatedTo = utils.Pointer(to.AddDate(0, 0, 1).UnixMilli())
	}
	q.SetLimit(int64(limit))
	q.Order("created_at", query.DESC)
	q.Order("id", query.DESC)
	return l.db.EventLogs.List(ctx, &q)
}

// GetEventStats sums the aggregates of the last days days per event name.
func (l *Logger) GetEventStats(ctx context.Context, days int) ([]*entities.EventStat, error) {
	if days < 0 {
		days = 0
	}
	since := l.today().AddDate(0, 0, -days).Format(entities.DateLayout)
	return l.db.Analytics.Stats(ctx, since)
}

// GetAnalytics returns raw aggregate rows ordered by date. Without dateFrom
// the window starts 30 days ago.
func (l *Logger) GetAnalytics(ctx context.Context, dateFrom, dateTo, pixelID string) ([]*entities.EventAnalytics, error) {
	if dateFrom == "" {
		dateFrom = l.today().AddDate(0, 0, -DefaultAnalyticsWindow).Format(entities.DateLayout)
	} else if _, err := parseDate("date_from", dateFrom); err != nil {
		return nil, err
	}
	if dateTo == "" {
		dateTo = l.today().Format(entities.DateLayout)
	} else if _, err := parseDate("date_to", dateTo); err != nil {
		return nil, err
	}

	q := query.AnalyticsQuery{
		DateFrom: utils.Pointer(dateFrom),
		DateTo:   utils.Pointer(dateTo),
	}
	if pixelID != "" {
		q.PixelID = utils.Pointer(pixelID)
	}
	q.Order("date", query.ASC)
	q.Order("event_name", query.ASC)
	return l.db.Analytics.List(ctx, &q)
}

// ClearAllLogs empties the log table, the aggregates and the log file.
func (l *Logger) ClearAllLogs(ctx context.Context) error {
	err := l.db.TX(ctx, func(ctx context.Context) error {
		if err := l.db.EventLogs.Truncate(ctx); err != nil {
			return err
		}
		return l.db.Analytics.Truncate(ctx)
	})
	if err != nil {
		return err
	}
	if l.file != nil {
		if err := l.file.truncate(); err != nil {
			return errors.Wrap(err, "failed to truncate event log file")
		}
	}
	l.log.Info("cleared all event logs")
	return nil
}

// CleanupResult reports the rows removed by CleanupOldLogs.
type CleanupResult struct {
	Logs       int64 `json:"logs"`
	Aggregates int64 `json:"aggregates"`
}

// CleanupOldLogs removes records and aggregates older than the retention
// window.
func (l *Logger) CleanupOldLogs(ctx context.Context) (*CleanupResult, error) {
	cutoff := l.today().AddDate(0, 0, -int(l.cfg.RetentionDays))
	var result CleanupResult
	err := l.db.TX(ctx, func(ctx context.Context) error {
		n, err := l.db.EventLogs.DeleteCreatedBefore(ctx, cutoff.UnixMilli())
		if err != nil {
			return err
		}
		result.Logs = n
		n, err = l.db.Analytics.DeleteBefore(ctx, cutoff.Format(entities.DateLayout))
		if err != nil {
			return err
		}
		result.Aggregates = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Infof("removed %d event logs and %d aggregates older than %s",
		result.Logs, result.Aggregates, cutoff.Format(entities.DateLayout))
	return &result, nil
}

// Count returns the number of stored records matching where.
func (l *Logger) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	return l.db.EventLogs.Count(ctx, where)
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.close()
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(entities.DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, errs.NewValidateError(fmt.Errorf("invalid %s '%s': expected YYYY-MM-DD", field, value))
	}
	return t, nil
}
