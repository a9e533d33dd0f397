package dao

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/trackify-io/trackify/db/entities"
)

type eventLogDAO struct {
	*DAO[entities.EventLog]
}

func NewEventLogDAO(db *sqlx.DB, dialect Dialect) EventLogDAO {
	return &eventLogDAO{
		DAO: NewDAO[entities.EventLog]("event_logs", db, dialect),
	}
}

func (dao *eventLogDAO) DeleteCreatedBefore(ctx context.Context, ms int64) (int64, error) {
	return dao.DeleteWhere(ctx, sq.Lt{"created_at": ms})
}
