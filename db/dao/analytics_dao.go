package dao

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/trackify-io/trackify/db/entities"
)

type analyticsDAO struct {
	*DAO[entities.EventAnalytics]
}

func NewAnalyticsDAO(db *sqlx.DB, dialect Dialect) AnalyticsDAO {
	return &analyticsDAO{
		DAO: NewDAO[entities.EventAnalytics]("event_analytics", db, dialect),
	}
}

const incrementSuffix = `ON CONFLICT (date, event_name, pixel_id) DO UPDATE SET
	total_events = event_analytics.total_events + 1,
	successful_events = event_analytics.successful_events + EXCLUDED.successful_events,
	failed_events = event_analytics.failed_events + EXCLUDED.failed_events,
	updated_at = EXCLUDED.updated_at`

// Increment counts one log record towards the aggregate row. pending
// records only move the total.
func (dao *analyticsDAO) Increment(ctx context.Context, date, eventName, pixelID string, status entities.LogStatus) error {
	var successful, failed int64
	switch status {
	case entities.LogStatusSuccess:
		successful = 1
	case entities.LogStatusError:
		failed = 1
	}
	now := time.Now().UnixMilli()
	statement, args := dao.psql.Insert(dao.table).
		Columns("date", "event_name", "pixel_id", "total_events", "successful_events", "failed_events", "created_at", "updated_at").
		Values(date, eventName, pixelID, 1, successful, failed, now, now).
		Suffix(incrementSuffix).
		MustSql()
	dao.debugSQL(statement, args)
	_, err := dao.DB(ctx).ExecContext(ctx, statement, args...)
	return err
}

func (dao *analyticsDAO) Stats(ctx context.Context, since string) ([]*entities.EventStat, error) {
	statement, args := dao.psql.
		Select(
			"event_name",
			"CAST(SUM(total_events) AS BIGINT) AS total",
			"CAST(SUM(successful_events) AS BIGINT) AS successful",
			"CAST(SUM(failed_events) AS BIGINT) AS failed",
		).
		From(dao.table).
		Where(sq.GtOrEq{"date": since}).
		GroupBy("event_name").
		OrderBy("total DESC", "event_name ASC").
		MustSql()
	dao.debugSQL(statement, args)
	list := make([]*entities.EventStat, 0)
	err := dao.DB(ctx).SelectContext(ctx, &list, statement, args...)
	return list, err
}

func (dao *analyticsDAO) DeleteBefore(ctx context.Context, date string) (int64, error) {
	return dao.DeleteWhere(ctx, sq.Lt{"date": date})
}
