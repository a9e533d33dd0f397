// Package tracker serves the public endpoints called by the browser script
// and by the trigger adapters.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/trackify-io/trackify/adapters"
	"github.com/trackify-io/trackify/capi"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/pkg/http/middlewares"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/ratelimiter"
	"github.com/trackify-io/trackify/pkg/types"
	"github.com/trackify-io/trackify/settings"
	"go.uber.org/zap"
)

type Tracker struct {
	cfg *modules.TrackerConfig
	log *zap.SugaredLogger
	s   *http.Server

	engine      *capi.Engine
	settings    *settings.Store
	adapters    []adapters.TriggerAdapter
	rateLimiter ratelimiter.RateLimiter
	middlewares []mux.MiddlewareFunc
}

type Options struct {
	Cfg         *modules.TrackerConfig
	Engine      *capi.Engine
	Settings    *settings.Store
	Adapters    []adapters.TriggerAdapter
	RateLimiter ratelimiter.RateLimiter
	Middlewares []mux.MiddlewareFunc
}

func NewTracker(opts Options) *Tracker {
	t := &Tracker{
		cfg:         opts.Cfg,
		log:         zap.S().Named("tracker"),
		engine:      opts.Engine,
		settings:    opts.Settings,
		adapters:    opts.Adapters,
		rateLimiter: opts.RateLimiter,
		middlewares: opts.Middlewares,
	}

	t.s = &http.Server{
		Handler: t.Handler(),
		Addr:    t.cfg.Listen,

		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	return t
}

// Handler returns the tracker routes wrapped in their middlewares.
func (t *Tracker) Handler() http.Handler {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, 404, types.ErrorResponse{Message: "not found"})
	})

	for _, m := range t.middlewares {
		r.Use(m)
	}
	r.Use(middlewares.NewRecovery(nil).Handle)
	r.Use(middlewares.RequestContext)
	r.Use(middlewares.MaxBodySize(t.cfg.MaxBodySize))
	if t.rateLimiter != nil && t.cfg.RateLimit.Enabled() {
		r.Use(middlewares.RateLimit(t.rateLimiter, t.cfg.RateLimit, t.log))
	}
	r.Use(t.engine.Middleware)

	r.HandleFunc("/track", t.Track).Methods("POST")
	r.HandleFunc("/track/event-id", t.EventID).Methods("POST")
	r.HandleFunc("/track/config", t.PixelConfig).Methods("GET")

	for _, adapter := range t.adapters {
		adapter.Register(r.PathPrefix("/integrations/"+adapter.Name()).Subrouter(), t.engine)
		t.log.Debugf("integration %s mounted at /integrations/%s", adapter.Name(), adapter.Name())
	}

	if len(t.cfg.AllowedOrigins) == 0 {
		return r
	}
	// preflight requests never match a route, so CORS wraps the router
	return cors.Handler(cors.Options{
		AllowedOrigins:   t.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

func (t *Tracker) Start() {
	go func() {
		tls := t.cfg.TLS
		if tls.Enabled() {
			if err := t.s.ListenAndServeTLS(tls.Cert, tls.Key); err != nil && err != http.ErrServerClosed {
				zap.S().Errorf("Failed to start Tracker : %v", err)
				os.Exit(1)
			}
		} else {
			if err := t.s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.S().Errorf("Failed to start Tracker : %v", err)
				os.Exit(1)
			}
		}
	}()

	t.log.Infow(fmt.Sprintf(`listening on address "%s"`, t.cfg.Listen), "tls", t.cfg.TLS.Enabled())
}

func (t *Tracker) Stop(ctx context.Context) error {
	if err := t.s.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}
