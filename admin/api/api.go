package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/trackify-io/trackify/capi"
	"github.com/trackify-io/trackify/config"
	"github.com/trackify-io/trackify/eventlog"
	"github.com/trackify-io/trackify/pkg/errs"
	"github.com/trackify-io/trackify/pkg/http/middlewares"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/types"
	"github.com/trackify-io/trackify/settings"
)

const MsgNotFound = "not found"

type API struct {
	cfg         *config.Config
	engine      *capi.Engine
	eventlog    *eventlog.Logger
	settings    *settings.Store
	middlewares []mux.MiddlewareFunc
}

type Options struct {
	Config      *config.Config
	Engine      *capi.Engine
	EventLog    *eventlog.Logger
	Settings    *settings.Store
	Middlewares []mux.MiddlewareFunc
}

func NewAPI(opts Options) *API {
	return &API{
		cfg:         opts.Config,
		engine:      opts.Engine,
		eventlog:    opts.EventLog,
		settings:    opts.Settings,
		middlewares: opts.Middlewares,
	}
}

// query returns the url query value if it exists.
func (api *API) query(r *http.Request, name string) string {
	return r.URL.Query().Get(name)
}

// queryInt returns the url query value as an integer, or fallback when it is
// missing.
func (api *API) queryInt(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errs.NewValidateError(errors.New("invalid " + name + ": " + value))
	}
	return n, nil
}

func (api *API) json(code int, w http.ResponseWriter, data interface{}) {
	response.JSON(w, code, data)
}

func (api *API) error(code int, w http.ResponseWriter, err error) {
	var validateErr *errs.ValidateError
	if errors.As(err, &validateErr) {
		api.json(code, w, types.ErrorResponse{
			Message: "Request Validation",
			Error:   validateErr,
		})
		return
	}
	api.json(code, w, types.ErrorResponse{Message: err.Error()})
}

func (api *API) assert(err error) {
	if err != nil {
		panic(err)
	}
}

// Handler returns a http.Handler
func (api *API) Handler() http.Handler {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, 404, types.ErrorResponse{Message: MsgNotFound})
	})

	for _, m := range api.middlewares {
		r.Use(m)
	}
	r.Use(middlewares.NewRecovery(api.customizeError).Handle)
	r.Use(middlewares.RequestContext)

	r.HandleFunc("/", api.Index).Methods("GET")

	r.HandleFunc("/logs", api.GetLogs).Methods("GET")
	r.HandleFunc("/logs", api.ClearLogs).Methods("DELETE")
	r.HandleFunc("/logs/cleanup", api.CleanupLogs).Methods("POST")

	r.HandleFunc("/stats", api.GetStats).Methods("GET")
	r.HandleFunc("/analytics", api.GetAnalytics).Methods("GET")

	r.HandleFunc("/test-event", api.SendTestEvent).Methods("POST")

	r.HandleFunc("/settings", api.GetSettings).Methods("GET")
	r.HandleFunc("/settings", api.UpdateSettings).Methods("PATCH")

	return r
}

func (api *API) customizeError(err error, w http.ResponseWriter) bool {
	var validateErr *errs.ValidateError
	if errors.As(err, &validateErr) {
		api.error(400, w, validateErr)
		return true
	}
	return false
}
