package entities

import (
	"github.com/trackify-io/trackify/pkg/types"
)

// Setting is a named configuration document saved through the admin API.
type Setting struct {
	Name      string     `json:"name" db:"name"`
	Value     string     `json:"value" db:"value"`
	UpdatedAt types.Time `json:"updated_at" db:"updated_at"`
}
