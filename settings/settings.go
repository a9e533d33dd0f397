// Package settings holds the live tracking configuration. Readers get an
// immutable snapshot, writers replace it.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/creasty/defaults"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/config/types"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/pkg/log"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Name is the settings row holding the tracking configuration.
const Name = "tracking"

var ErrInvalidSettings = errors.New("invalid settings")

type Store struct {
	current atomic.Pointer[modules.TrackingConfig]
	version atomic.Int64

	// serializes writers, readers never take it
	mux sync.Mutex

	db    *db.DB
	log   *zap.SugaredLogger
	group singleflight.Group
}

// New returns a store serving initial. When db is nil updates stay in memory.
func New(initial *modules.TrackingConfig, db *db.DB) *Store {
	s := &Store{
		db:  db,
		log: log.Named(nil, "settings"),
	}
	s.current.Store(initial.Clone())
	return s
}

// Get returns the current snapshot. Callers must not modify it.
func (s *Store) Get() *modules.TrackingConfig {
	return s.current.Load()
}

// Update applies fn to a copy of the current snapshot, validates and
// persists it, then publishes it. A masked access token keeps the value the
// pixel already had.
func (s *Store) Update(ctx context.Context, fn func(cfg *modules.TrackingConfig)) (*modules.TrackingConfig, error) {
	return s.apply(ctx, func(cfg *modules.TrackingConfig) error {
		fn(cfg)
		return nil
	})
}

// Patch merges a JSON document into the current settings. Keys missing from
// doc keep their value, events are merged by name and pixels are replaced
// as a whole.
func (s *Store) Patch(ctx context.Context, doc []byte) (*modules.TrackingConfig, error) {
	return s.apply(ctx, func(cfg *modules.TrackingConfig) error {
		if err := json.Unmarshal(doc, cfg); err != nil {
			return &ValidateError{Err: err}
		}
		return nil
	})
}

func (s *Store) apply(ctx context.Context, fn func(cfg *modules.TrackingConfig) error) (*modules.TrackingConfig, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	prev := s.Get()
	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	restoreTokens(prev, next)

	if err := next.PostProcess(); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, &ValidateError{Err: err}
	}

	if s.db != nil {
		b, err := yaml.Marshal(next)
		if err != nil {
			return nil, err
		}
		setting := &entities.Setting{Name: Name, Value: string(b)}
		if err := s.db.Settings.Save(ctx, setting); err != nil {
			return nil, err
		}
		s.version.Store(setting.UpdatedAt.UnixMilli())
	}

	s.current.Store(next)
	s.log.Infof("tracking settings updated: %d pixel(s), capi_enabled=%t, test_mode=%t",
		len(next.Pixels), next.CAPIEnabled, next.TestMode)
	return next, nil
}

// Reload picks up settings saved by another node. Concurrent calls share one
// database read.
func (s *Store) Reload(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err, _ := s.group.Do(Name, func() (interface{}, error) {
		return nil, s.reload(ctx)
	})
	return err
}

func (s *Store) reload(ctx context.Context) error {
	setting, err := s.db.Settings.GetByName(ctx, Name)
	if err != nil {
		return err
	}
	if setting == nil {
		return nil
	}
	version := setting.UpdatedAt.UnixMilli()
	if version == s.version.Load() {
		return nil
	}

	cfg, err := Decode(setting.Value)
	if err != nil {
		s.log.Warnf("ignoring stored settings: %v", err)
		return err
	}
	s.current.Store(cfg)
	s.version.Store(version)
	s.log.Infof("tracking settings reloaded (version %d)", version)
	return nil
}

// Decode parses a stored YAML document on top of the defaults.
func Decode(value string) (*modules.TrackingConfig, error) {
	cfg := &modules.TrackingConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(value), cfg); err != nil {
		return nil, &ValidateError{Err: err}
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ValidateError{Err: err}
	}
	return cfg, nil
}

func restoreTokens(prev, next *modules.TrackingConfig) {
	tokens := make(map[string]types.Password, len(prev.Pixels))
	for _, p := range prev.Pixels {
		tokens[p.PixelID] = p.AccessToken
	}
	for i := range next.Pixels {
		if next.Pixels[i].AccessToken.IsMasked() {
			next.Pixels[i].AccessToken = tokens[next.Pixels[i].PixelID]
		}
	}
}

type ValidateError struct {
	Err error
}

func (e *ValidateError) Error() string {
	return ErrInvalidSettings.Error() + ": " + e.Err.Error()
}

func (e *ValidateError) Unwrap() []error {
	return []error{ErrInvalidSettings, e.Err}
}
