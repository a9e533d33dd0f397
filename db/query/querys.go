package query

import sq "github.com/Masterminds/squirrel"

type EventLogQuery struct {
	Query

	EventName   *string
	PixelID     *string
	Status      *string
	CreatedFrom *int64
	CreatedTo   *int64
}

func (q *EventLogQuery) Where() sq.Sqlizer {
	eq := sq.Eq{}
	if q.EventName != nil {
		eq["event_name"] = *q.EventName
	}
	if q.PixelID != nil {
		eq["pixel_id"] = *q.PixelID
	}
	if q.Status != nil {
		eq["status"] = *q.Status
	}
	and := sq.And{eq}
	if q.CreatedFrom != nil {
		and = append(and, sq.GtOrEq{"created_at": *q.CreatedFrom})
	}
	if q.CreatedTo != nil {
		and = append(and, sq.Lt{"created_at": *q.CreatedTo})
	}
	return and
}

type AnalyticsQuery struct {
	Query

	DateFrom *string
	DateTo   *string
	PixelID  *string
}

func (q *AnalyticsQuery) Where() sq.Sqlizer {
	and := sq.And{}
	if q.PixelID != nil {
		and = append(and, sq.Eq{"pixel_id": *q.PixelID})
	}
	if q.DateFrom != nil {
		and = append(and, sq.GtOrEq{"date": *q.DateFrom})
	}
	if q.DateTo != nil {
		and = append(and, sq.LtOrEq{"date": *q.DateTo})
	}
	return and
}
