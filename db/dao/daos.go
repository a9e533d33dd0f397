package dao

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/db/query"
)

type BaseDAO[T any] interface {
	Get(ctx context.Context, id interface{}) (*T, error)
	Insert(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id interface{}) (bool, error)
	Count(ctx context.Context, where sq.Sqlizer) (int64, error)
	Page(ctx context.Context, q query.Queryer) ([]*T, int64, error)
	List(ctx context.Context, q query.Queryer) ([]*T, error)
	BatchInsert(ctx context.Context, entities []*T) error
	Truncate(ctx context.Context) error
}

type EventLogDAO interface {
	BaseDAO[entities.EventLog]
	DeleteCreatedBefore(ctx context.Context, ms int64) (int64, error)
}

type AnalyticsDAO interface {
	BaseDAO[entities.EventAnalytics]
	// Increment adds one event to the counters of (date, event_name, pixel_id)
	// in a single statement.
	Increment(ctx context.Context, date, eventName, pixelID string, status entities.LogStatus) error
	Stats(ctx context.Context, since string) ([]*entities.EventStat, error)
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

type SettingDAO interface {
	GetByName(ctx context.Context, name string) (*entities.Setting, error)
	Save(ctx context.Context, setting *entities.Setting) error
}
