// Package app wires the configuration into running listeners and jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/trackify-io/trackify"
	"github.com/trackify-io/trackify/adapters"
	"github.com/trackify-io/trackify/admin"
	"github.com/trackify-io/trackify/admin/api"
	"github.com/trackify-io/trackify/capi"
	"github.com/trackify-io/trackify/config"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/migrator"
	"github.com/trackify-io/trackify/eventlog"
	"github.com/trackify-io/trackify/pkg/accesslog"
	"github.com/trackify-io/trackify/pkg/log"
	"github.com/trackify-io/trackify/pkg/metrics"
	"github.com/trackify-io/trackify/pkg/pool"
	"github.com/trackify-io/trackify/pkg/ratelimiter"
	"github.com/trackify-io/trackify/pkg/schedule"
	"github.com/trackify-io/trackify/settings"
	"github.com/trackify-io/trackify/status"
	"github.com/trackify-io/trackify/status/health"
	"github.com/trackify-io/trackify/tracker"
	"github.com/trackify-io/trackify/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	TaskCleanupLogs    = "eventlog.cleanup"
	TaskReloadSettings = "settings.reload"
)

var (
	ErrApplicationStarted = errors.New("already started")
	ErrApplicationStopped = errors.New("already stopped")
)

type Application struct {
	cfg *config.Config

	mux     sync.Mutex
	started bool

	stop chan struct{}

	log       *zap.SugaredLogger
	db        *db.DB
	redis     *redis.Client
	metrics   *metrics.Metrics
	settings  *settings.Store
	eventlog  *eventlog.Logger
	engine    *capi.Engine
	flushPool *pool.Pool
	scheduler schedule.Scheduler

	admin   *admin.Admin
	tracker *tracker.Tracker
	status  *status.Status
}

func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		cfg:  cfg,
		stop: make(chan struct{}, 1),
	}

	err := app.initialize()
	if err != nil {
		return nil, err
	}

	return app, nil
}

// httpMiddlewares returns the access log and otel middlewares of a listener.
func (app *Application) httpMiddlewares(name string, cfg modules.AccessLogConfig) ([]mux.MiddlewareFunc, error) {
	var list []mux.MiddlewareFunc
	accessLogger, err := accesslog.NewAccessLogger(name, cfg)
	if err != nil {
		return nil, err
	}
	if accessLogger != nil {
		list = append(list, accesslog.NewMiddleware(accessLogger))
	}
	if app.metrics.Enabled {
		list = append(list, otelhttp.NewMiddleware("api."+name))
	}
	return list, nil
}

func (app *Application) initialize() error {
	cfg := app.cfg

	log, err := log.NewZapLogger(&cfg.Log)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(log.Desugar())
	app.log = log

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		app.log.Error(err)
	}))

	sqlDB, err := db.NewSqlDB(cfg.Database)
	if err != nil {
		return err
	}
	app.db, err = db.NewDB(sqlDB, db.DialectOf(cfg.Database), log)
	if err != nil {
		return err
	}

	if cfg.Redis.Enabled() {
		app.redis = cfg.Redis.GetClient()
	}

	app.metrics, err = metrics.New(cfg.Metrics)
	if err != nil {
		return err
	}

	app.settings = settings.New(&cfg.Tracking, app.db)

	app.eventlog, err = eventlog.New(cfg.Logging, app.db)
	if err != nil {
		return err
	}

	if cfg.Tracker.IsEnabled() {
		app.flushPool = pool.NewPool(cfg.Tracker.Flush.QueueSize, cfg.Tracker.Flush.Workers, log.Named("flush"))
	}

	app.engine = capi.New(capi.Options{
		Settings: app.settings,
		Recorder: app.eventlog,
		Metrics:  app.metrics,
		Log:      log,
		Pool:     app.flushPool,
	})

	var schedulerOpts []schedule.Option
	if app.redis != nil {
		schedulerOpts = append(schedulerOpts, schedule.WithLocker(schedule.NewRedisLocker(app.redis)))
	}
	app.scheduler = schedule.NewScheduler(log.Named("scheduler"), schedulerOpts...)
	app.registerTasks()

	// admin
	if cfg.Admin.IsEnabled() {
		middlewares, err := app.httpMiddlewares("admin", cfg.Admin.AccessLog)
		if err != nil {
			return err
		}
		api := api.NewAPI(api.Options{
			Config:      cfg,
			Engine:      app.engine,
			EventLog:    app.eventlog,
			Settings:    app.settings,
			Middlewares: middlewares,
		})
		app.admin = admin.NewAdmin(cfg.Admin, api.Handler())
	}

	// tracker
	if cfg.Tracker.IsEnabled() {
		list, err := adapters.New(cfg.Tracker.Integrations, log)
		if err != nil {
			return err
		}
		middlewares, err := app.httpMiddlewares("tracker", cfg.Tracker.AccessLog)
		if err != nil {
			return err
		}
		var limiter ratelimiter.RateLimiter
		if app.redis != nil {
			limiter = ratelimiter.NewRedisLimiter(redis_rate.NewLimiter(app.redis))
		} else {
			limiter = ratelimiter.NewMemoryLimiter(10000, 10*time.Minute)
		}
		app.tracker = tracker.NewTracker(tracker.Options{
			Cfg:         &cfg.Tracker,
			Engine:      app.engine,
			Settings:    app.settings,
			Adapters:    list,
			RateLimiter: limiter,
			Middlewares: middlewares,
		})
	}

	// status
	if cfg.Status.IsEnabled() {
		indicators := []*health.Indicator{health.DatabaseIndicator(app.db)}
		if app.redis != nil {
			indicators = append(indicators, health.RedisIndicator(app.redis))
		}
		app.status = status.NewStatus(cfg.Status, status.Options{
			DB:         app.db,
			EventLog:   app.eventlog,
			Settings:   app.settings,
			Indicators: indicators,
		})
	}

	return nil
}

func (app *Application) registerTasks() {
	if interval := app.cfg.Logging.CleanupInterval; interval > 0 {
		app.scheduler.AddTask(&schedule.Task{
			Name:         TaskCleanupLogs,
			InitialDelay: time.Minute,
			Interval:     utils.DurationS(int64(interval)),
			Exclusive:    true,
			Do: func(ctx context.Context) error {
				_, err := app.eventlog.CleanupOldLogs(ctx)
				return err
			},
		})
	}
	if interval := app.cfg.Tracking.ReloadInterval; interval > 0 {
		app.scheduler.AddTask(&schedule.Task{
			Name:         TaskReloadSettings,
			InitialDelay: utils.DurationS(int64(interval)),
			Interval:     utils.DurationS(int64(interval)),
			Do:           app.settings.Reload,
		})
	}
}

func (app *Application) DB() *db.DB {
	return app.db
}

func (app *Application) Engine() *capi.Engine {
	return app.engine
}

func (app *Application) Settings() *settings.Store {
	return app.settings
}

func (app *Application) EventLog() *eventlog.Logger {
	return app.eventlog
}

func (app *Application) Scheduler() schedule.Scheduler {
	return app.scheduler
}

func (app *Application) Config() *config.Config {
	return app.cfg
}

// checkDatabase refuses to serve on a schema that is dirty or behind.
func (app *Application) checkDatabase() error {
	m := migrator.New(app.db.SqlDB(), app.db.Dialect, &migrator.Options{Quiet: true})
	pending, err := m.Pending()
	if err != nil {
		return err
	}
	if pending {
		return errors.New("database is not up to date. Run 'trackify db up' before starting")
	}
	version, dirty, err := m.Status()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state at version %d", version)
	}
	return nil
}

// Start starts application
func (app *Application) Start() error {
	app.mux.Lock()
	defer app.mux.Unlock()

	if app.started {
		return ErrApplicationStarted
	}

	if err := app.checkDatabase(); err != nil {
		return err
	}

	// settings saved through the admin API win over the file
	if err := app.settings.Reload(context.Background()); err != nil {
		app.log.Warnf("failed to load stored settings: %v", err)
	}

	app.log.Infof("starting Trackify %s", trackify.VERSION)

	app.scheduler.Start()
	if app.admin != nil {
		app.admin.Start()
	}
	if app.tracker != nil {
		app.tracker.Start()
	}
	if app.status != nil {
		app.status.Start()
	}

	app.started = true

	return nil
}

func (app *Application) Wait() {
	<-app.stop
}

// Stop stops application
func (app *Application) Stop() error {
	app.mux.Lock()
	defer app.mux.Unlock()

	if !app.started {
		return ErrApplicationStopped
	}

	app.log.Info("exiting")

	defer func() {
		app.log.Info("exit")
		_ = app.log.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	servers := []interface {
		Stop(ctx context.Context) error
	}{}
	if app.tracker != nil {
		servers = append(servers, app.tracker)
	}
	if app.admin != nil {
		servers = append(servers, app.admin)
	}
	if app.status != nil {
		servers = append(servers, app.status)
	}
	for _, s := range servers {
		if err := s.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Warnf("failed to stop listener: %v", err)
		}
	}

	if app.flushPool != nil {
		app.flushPool.Shutdown()
	}
	app.scheduler.Stop()
	_ = app.metrics.Stop()
	_ = app.eventlog.Close()
	if app.redis != nil {
		_ = app.redis.Close()
	}
	_ = app.db.Close()

	app.started = false
	app.stop <- struct{}{}

	return nil
}
