// Package status serves the internal listener with runtime information,
// health checks and the optional pprof endpoints.
package status

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/eventlog"
	"github.com/trackify-io/trackify/settings"
	"github.com/trackify-io/trackify/status/health"
	"go.uber.org/zap"
)

type Status struct {
	api *API
	cfg *modules.StatusConfig
	s   *http.Server
	log *zap.SugaredLogger
}

type Options struct {
	DB          *db.DB
	EventLog    *eventlog.Logger
	Settings    *settings.Store
	Indicators  []*health.Indicator
	Middlewares []mux.MiddlewareFunc
}

func NewStatus(cfg modules.StatusConfig, opts Options) *Status {
	log := zap.S().Named("status")
	api := &API{
		startAt:        time.Now(),
		debugEndpoints: cfg.DebugEndpoints,
		db:             opts.DB,
		eventlog:       opts.EventLog,
		settings:       opts.Settings,
		indicators:     opts.Indicators,
		middlewares:    opts.Middlewares,
		log:            log,
	}
	s := &http.Server{
		Handler:      api.Handler(),
		Addr:         cfg.Listen,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Status{
		api: api,
		cfg: &cfg,
		s:   s,
		log: log,
	}
}

func (s *Status) Handler() http.Handler {
	return s.s.Handler
}

func (s *Status) Start() {
	go func() {
		if err := s.s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Errorf("Failed to start status HTTP server: %v", err)
			os.Exit(1)
		}
	}()

	s.log.Infow(fmt.Sprintf(`listening on address "%s"`, s.cfg.Listen))

	if s.cfg.DebugEndpoints {
		s.log.Infow("serving debug endpoints at /debug", "pprof", "/debug/pprof/")
	}
}

func (s *Status) Stop(ctx context.Context) error {
	s.log.Infof("exiting")
	if err := s.s.Shutdown(ctx); err != nil {
		return err
	}
	s.log.Infof("exit")
	return nil
}
