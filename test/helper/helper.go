// Package helper starts full applications for the end-to-end suites.
package helper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/trackify-io/trackify/app"
	"github.com/trackify-io/trackify/config"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/migrator"
	"github.com/trackify-io/trackify/utils"
	"go.uber.org/zap"
)

const (
	AdminAddr   = "127.0.0.1:19601"
	TrackerAddr = "127.0.0.1:19600"
	StatusAddr  = "127.0.0.1:19602"
)

var DatabasePath = filepath.Join(os.TempDir(), "trackify-test.db")

var defaultEnvs = map[string]string{
	"TRACKIFY_LOG_LEVEL":       "debug",
	"TRACKIFY_LOG_FORMAT":      "text",
	"TRACKIFY_LOG_FILE":        "trackify.log",
	"TRACKIFY_DATABASE_DRIVER": "sqlite3",
	"TRACKIFY_DATABASE_PATH":   DatabasePath,
	"TRACKIFY_ADMIN_LISTEN":    AdminAddr,
	"TRACKIFY_TRACKER_LISTEN":  TrackerAddr,
	"TRACKIFY_STATUS_LISTEN":   StatusAddr,

	"TRACKIFY_ADMIN_ACCESS_LOG_ENABLED":   "false",
	"TRACKIFY_TRACKER_ACCESS_LOG_ENABLED": "false",
}

// Pixels renders pixel ids as the inline YAML accepted by TRACKIFY_TRACKING_PIXELS.
func Pixels(ids ...string) string {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, fmt.Sprintf(`{pixel_id: "%s", access_token: "token-%s"}`, id, id))
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// LoadConfig reads the configuration from the current environment.
func LoadConfig(envs map[string]string) (*config.Config, error) {
	ClearEnvironments("TRACKIFY_")
	SetEnvironments(defaultEnvs)
	SetEnvironments(envs)

	cfg := config.New()
	if err := config.Load("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Start starts Trackify with given environment variables
func Start(envs map[string]string) (*app.Application, error) {
	cfg, err := LoadConfig(envs)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.Log.File); err == nil {
		TruncateFile(cfg.Log.File)
	}

	app, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := app.Start(); err != nil {
		return nil, err
	}

	go app.Wait()

	time.Sleep(time.Millisecond * 500)
	return app, nil
}

func AdminClient() *resty.Client {
	return resty.New().SetBaseURL("http://" + AdminAddr)
}

func TrackerClient() *resty.Client {
	return resty.New().SetBaseURL("http://" + TrackerAddr)
}

func StatusClient() *resty.Client {
	return resty.New().SetBaseURL("http://" + StatusAddr)
}

// InitDB recreates the test database and returns a handle to it.
func InitDB() *db.DB {
	cfg := utils.Must(LoadConfig(nil))
	sqlDB := utils.Must(db.NewSqlDB(cfg.Database))
	dialect := db.DialectOf(cfg.Database)

	m := migrator.New(sqlDB, dialect, &migrator.Options{Quiet: true})
	if err := m.Reset(); err != nil {
		panic(err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		panic(err)
	}
	return utils.Must(db.NewDB(sqlDB, dialect, zap.S()))
}

func TruncateFile(filename string) {
	err := os.Truncate(filename, 0)
	if err != nil {
		panic("failed to truncate file: " + err.Error())
	}
}
