package status

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gorilla/mux"
	"github.com/trackify-io/trackify"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/eventlog"
	"github.com/trackify-io/trackify/pkg/http/middlewares"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/settings"
	"github.com/trackify-io/trackify/status/health"
	"github.com/trackify-io/trackify/utils"
	"go.uber.org/zap"
)

type API struct {
	startAt        time.Time
	debugEndpoints bool
	db             *db.DB
	eventlog       *eventlog.Logger
	settings       *settings.Store
	indicators     []*health.Indicator
	middlewares    []mux.MiddlewareFunc
	log            *zap.SugaredLogger
}

func (api *API) logStats(ctx context.Context) LogStats {
	var stats LogStats
	if api.eventlog == nil {
		return stats
	}
	counts := []struct {
		dst   *int64
		where sq.Sqlizer
	}{
		{&stats.Total, nil},
		{&stats.Success, sq.Eq{"status": entities.LogStatusSuccess}},
		{&stats.Error, sq.Eq{"status": entities.LogStatusError}},
		{&stats.Pending, sq.Eq{"status": entities.LogStatusPending}},
	}
	for _, c := range counts {
		n, err := api.eventlog.Count(ctx, c.where)
		if err != nil {
			api.log.Warnf("failed to count event logs: %v", err)
			continue
		}
		*c.dst = n
	}
	return stats
}

func (api *API) Index(w http.ResponseWriter, r *http.Request) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	resp := StatusResponse{
		Version: trackify.VERSION,
		UpTime:  time.Since(api.startAt).Round(time.Second).String(),
		Runtime: RuntimeStats{
			Go:         runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
		},
		Memory: MemoryStats{
			Alloc:       fmt.Sprintf("%.2f MiB", BytesToMiB(stats.Alloc)),
			Sys:         fmt.Sprintf("%.2f MiB", BytesToMiB(stats.Sys)),
			HeapAlloc:   fmt.Sprintf("%.2f MiB", BytesToMiB(stats.HeapAlloc)),
			HeapObjects: int64(stats.HeapObjects),
			GC:          int64(stats.NumGC),
		},
		Logs: api.logStats(r.Context()),
	}

	if api.db != nil {
		dbStats := api.db.DB.Stats()
		resp.Database = DatabaseStats{
			TotalConnections:  dbStats.OpenConnections,
			ActiveConnections: dbStats.InUse,
		}
	}

	if api.settings != nil {
		cfg := api.settings.Get()
		resp.Tracking = TrackingStats{
			TestMode:     cfg.TestMode,
			UseQueue:     cfg.UseQueue,
			ActivePixels: len(cfg.ActivePixels()),
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     health.StatusUp,
		Components: make(map[string]HealthResult),
	}
	for _, check := range api.indicators {
		res := HealthResult{
			Status: health.StatusUp,
			Error:  nil,
		}
		err := check.Check()
		if err != nil {
			resp.Status = health.StatusDown

			res.Status = health.StatusDown
			res.Error = utils.Pointer(err.Error())
		}
		resp.Components[check.Name] = res
	}

	if resp.Status != health.StatusUp {
		response.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

func (api *API) Handler() http.Handler {
	r := mux.NewRouter()

	for _, m := range api.middlewares {
		r.Use(m)
	}
	r.Use(middlewares.NewRecovery(nil).Handle)

	r.HandleFunc("/", api.Index).Methods("GET")
	r.HandleFunc("/health", api.Health).Methods("GET")

	if api.debugEndpoints {
		r.HandleFunc("/debug/pprof/profile", pprof.Profile).Methods("GET")
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol).Methods("GET")
		r.HandleFunc("/debug/pprof/trace", pprof.Trace).Methods("GET")
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline).Methods("GET")
		r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index).Methods("GET")
	}

	return r
}
