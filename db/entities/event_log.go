package entities

import (
	"github.com/trackify-io/trackify/pkg/types"
)

type LogStatus = string

const (
	LogStatusPending LogStatus = "pending"
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
)

// EventLog is one delivery attempt of one event to one pixel. Rows are never
// updated, only deleted in bulk.
type EventLog struct {
	ID           int64      `json:"id" db:"id"`
	EventName    string     `json:"event_name" db:"event_name"`
	EventID      string     `json:"event_id" db:"event_id"`
	PixelID      string     `json:"pixel_id" db:"pixel_id"`
	EventTime    int64      `json:"event_time" db:"event_time"`
	EventData    JSON       `json:"event_data" db:"event_data"`
	UserData     JSON       `json:"user_data" db:"user_data"`
	Status       LogStatus  `json:"status" db:"status"`
	ResponseCode int        `json:"response_code" db:"response_code"`
	ResponseData JSON       `json:"response_data" db:"response_data"`
	ErrorMessage string     `json:"error_message" db:"error_message"`
	CreatedAt    types.Time `json:"created_at" db:"created_at"`
}
