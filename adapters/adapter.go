// Package adapters turns third-party "thing happened" callbacks into tracked
// conversion events.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/trackify-io/trackify/capi"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/errs"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/types"
	"go.uber.org/zap"
)

// Core is the part of the delivery engine adapters are allowed to use.
type Core interface {
	SendEvent(ctx context.Context, name string, customData model.CustomData, userData model.UserData, eventID string) (*model.DeliveryResult, error)
	GenerateEventID(prefix, identifier string) string
}

var _ Core = (*capi.Engine)(nil)

// TriggerAdapter mounts the callback routes of one integration. The router
// passed to Register is already scoped to /integrations/{name}.
type TriggerAdapter interface {
	Name() string
	Register(r *mux.Router, core Core)
}

type Factory func(log *zap.SugaredLogger) TriggerAdapter

var lock sync.RWMutex
var registry = map[string]Factory{}

func Register(name string, fn Factory) {
	lock.Lock()
	defer lock.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("adapter '%s' already registered", name))
	}
	registry[name] = fn
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	lock.RLock()
	defer lock.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the named adapters in the given order.
func New(names []string, log *zap.SugaredLogger) ([]TriggerAdapter, error) {
	lock.RLock()
	defer lock.RUnlock()
	list := make([]TriggerAdapter, 0, len(names))
	seen := make([]string, 0, len(names))
	for _, name := range names {
		if slices.Contains(seen, name) {
			continue
		}
		fn, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown integration '%s'", name)
		}
		seen = append(seen, name)
		list = append(list, fn(log))
	}
	return list, nil
}

// SharedEventID returns the event id supplied by the caller, so the browser
// pixel and the server event deduplicate, or generates one.
func SharedEventID(core Core, supplied, prefix, identifier string) string {
	if supplied != "" {
		return supplied
	}
	return core.GenerateEventID(prefix, identifier)
}

// Track sends the event and writes the outcome to w.
func Track(w http.ResponseWriter, r *http.Request, core Core, name string, customData model.CustomData, userData model.UserData, eventID string) {
	result, err := core.SendEvent(r.Context(), name, customData, userData, eventID)
	Respond(w, result, err)
}

// Respond maps a send outcome to an HTTP response.
func Respond(w http.ResponseWriter, result *model.DeliveryResult, err error) {
	if err == nil {
		code := http.StatusOK
		if result.Queued {
			code = http.StatusAccepted
		}
		response.JSON(w, code, result)
		return
	}

	var configErr *capi.ConfigError
	var validateErr *errs.ValidateError
	var deliveryErr *capi.DeliveryError
	switch {
	case errors.As(err, &configErr):
		response.JSON(w, http.StatusUnprocessableEntity, types.ErrorResponse{Message: err.Error()})
	case errors.As(err, &validateErr):
		response.JSON(w, http.StatusBadRequest, types.ErrorResponse{Message: "Request Validation", Error: validateErr})
	case errors.As(err, &deliveryErr):
		response.JSON(w, http.StatusBadGateway, types.ErrorResponse{Message: err.Error(), Error: result})
	default:
		panic(err)
	}
}
