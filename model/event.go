package model

import (
	"slices"

	"github.com/trackify-io/trackify/constants"
	"github.com/trackify-io/trackify/utils"
)

type ActionSource string

const (
	ActionSourceWebsite   ActionSource = "website"
	ActionSourceApp       ActionSource = "app"
	ActionSourcePhoneCall ActionSource = "phone_call"
	ActionSourceChat      ActionSource = "chat"
	ActionSourceEmail     ActionSource = "email"
	ActionSourceOther     ActionSource = "other"
)

// User data keys. Hashed keys must only ever hold SHA-256 digests.
const (
	UserEmail       = "em"
	UserPhone       = "ph"
	UserFirstName   = "fn"
	UserLastName    = "ln"
	UserCity        = "ct"
	UserState       = "st"
	UserPostcode    = "zp"
	UserCountry     = "country"
	UserGender      = "ge"
	UserDateOfBirth = "db"
	UserExternalID  = "external_id"
	UserClientIP    = "client_ip_address"
	UserAgent       = "client_user_agent"
	UserFBP         = "fbp"
	UserFBC         = "fbc"
)

var HashedUserKeys = []string{
	UserEmail, UserPhone, UserFirstName, UserLastName, UserCity,
	UserState, UserPostcode, UserCountry, UserGender, UserDateOfBirth,
}

type UserData map[string]string

// Set stores value under key unless it is empty.
func (u UserData) Set(key, value string) {
	if value == "" {
		return
	}
	u[key] = value
}

type CustomData map[string]interface{}

// Event is the object sent in the data array of a Conversions API request.
type Event struct {
	EventName      string       `json:"event_name" validate:"required,max=100"`
	EventTime      int64        `json:"event_time" validate:"required"`
	EventID        string       `json:"event_id" validate:"required,max=255"`
	ActionSource   ActionSource `json:"action_source" validate:"required,oneof=website app phone_call chat email other"`
	EventSourceURL string       `json:"event_source_url,omitempty"`
	UserData       UserData     `json:"user_data"`
	CustomData     CustomData   `json:"custom_data,omitempty"`
}

func (e *Event) Validate() error {
	return utils.Validate(e)
}

func IsStandardEvent(name string) bool {
	return slices.Contains(constants.StandardEvents, name)
}
