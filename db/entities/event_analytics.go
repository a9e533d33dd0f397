package entities

import (
	"github.com/trackify-io/trackify/pkg/types"
)

// DateLayout is the layout of EventAnalytics.Date, always UTC.
const DateLayout = "2006-01-02"

// EventAnalytics holds the running counters of one (date, event_name, pixel_id).
type EventAnalytics struct {
	ID               int64      `json:"id" db:"id"`
	Date             string     `json:"date" db:"date"`
	EventName        string     `json:"event_name" db:"event_name"`
	PixelID          string     `json:"pixel_id" db:"pixel_id"`
	TotalEvents      int64      `json:"total_events" db:"total_events"`
	SuccessfulEvents int64      `json:"successful_events" db:"successful_events"`
	FailedEvents     int64      `json:"failed_events" db:"failed_events"`
	CreatedAt        types.Time `json:"created_at" db:"created_at"`
	UpdatedAt        types.Time `json:"updated_at" db:"updated_at"`
}

type EventStat struct {
	EventName  string `json:"event_name" db:"event_name"`
	Total      int64  `json:"total" db:"total"`
	Successful int64  `json:"successful" db:"successful"`
	Failed     int64  `json:"failed" db:"failed"`
}
