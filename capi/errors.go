package capi

import (
	"fmt"
	"strings"

	"github.com/trackify-io/trackify/model"
)

// ConfigError means the call should not have happened: nothing was sent and
// nothing was logged.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

var (
	ErrCAPIDisabled  = &ConfigError{Reason: "conversions api is disabled"}
	ErrEventDisabled = &ConfigError{Reason: "event is disabled"}
	ErrNoActivePixel = &ConfigError{Reason: "no active pixel configured"}
)

// DeliveryError is returned when every pixel rejected the events.
type DeliveryError struct {
	Results model.Results
}

func (e *DeliveryError) Error() string {
	failed := e.Results.Failed()
	messages := make([]string, 0, len(failed))
	for _, id := range failed {
		messages = append(messages, fmt.Sprintf("%s: %s", id, e.Results[id].Error))
	}
	return "delivery failed: " + strings.Join(messages, "; ")
}
