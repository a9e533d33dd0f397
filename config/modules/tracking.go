package modules

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/trackify-io/trackify/config/types"
	"github.com/trackify-io/trackify/constants"
	"gopkg.in/yaml.v3"
)

type Channel string

const (
	ChannelPixel Channel = "pixel"
	ChannelCAPI  Channel = "capi"
)

type Pixel struct {
	Name          string         `yaml:"name" json:"name"`
	PixelID       string         `yaml:"pixel_id" json:"pixel_id"`
	AccessToken   types.Password `yaml:"access_token" json:"access_token"`
	TestEventCode string         `yaml:"test_event_code" json:"test_event_code"`
	Enabled       bool           `yaml:"enabled" json:"enabled" default:"true"`
}

type plainPixel Pixel

// UnmarshalYAML keeps a pixel enabled unless it says otherwise.
func (p *Pixel) UnmarshalYAML(value *yaml.Node) error {
	v := plainPixel{Enabled: true}
	if err := value.Decode(&v); err != nil {
		return err
	}
	*p = Pixel(v)
	return nil
}

func (p *Pixel) UnmarshalJSON(data []byte) error {
	v := plainPixel{Enabled: true}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Pixel(v)
	return nil
}

// IsConfigured reports whether the pixel carries everything needed for a CAPI call.
func (p Pixel) IsConfigured() bool {
	return p.PixelID != "" && p.AccessToken != ""
}

// maxPixelIDLength matches the pixel_id columns of the log tables.
const maxPixelIDLength = 50

func (p Pixel) Validate() error {
	if p.PixelID == "" {
		return errors.New("pixel_id is required")
	}
	if len(p.PixelID) > maxPixelIDLength {
		return fmt.Errorf("invalid pixel_id '%s': longer than %d characters", p.PixelID, maxPixelIDLength)
	}
	for _, c := range p.PixelID {
		if c < '0' || c > '9' {
			return fmt.Errorf("invalid pixel_id '%s': must be numeric", p.PixelID)
		}
	}
	return nil
}

type EventConfig struct {
	Pixel bool `yaml:"pixel" json:"pixel"`
	CAPI  bool `yaml:"capi" json:"capi"`
}

func (c EventConfig) Enabled(ch Channel) bool {
	switch ch {
	case ChannelPixel:
		return c.Pixel
	case ChannelCAPI:
		return c.CAPI
	}
	return false
}

type AdvancedMatching struct {
	Enabled    bool `yaml:"enabled" json:"enabled" default:"true"`
	Email      bool `yaml:"email" json:"email" default:"true"`
	Phone      bool `yaml:"phone" json:"phone" default:"true"`
	Name       bool `yaml:"name" json:"name" default:"true"`
	Address    bool `yaml:"address" json:"address" default:"true"`
	ExternalID bool `yaml:"external_id" json:"external_id" default:"true" envconfig:"EXTERNAL_ID"`
}

type TrackingConfig struct {
	BaseConfig
	CAPIEnabled      bool                   `yaml:"capi_enabled" json:"capi_enabled" default:"true" envconfig:"CAPI_ENABLED"`
	PixelEnabled     bool                   `yaml:"pixel_enabled" json:"pixel_enabled" default:"true" envconfig:"PIXEL_ENABLED"`
	TestMode         bool                   `yaml:"test_mode" json:"test_mode" envconfig:"TEST_MODE"`
	UseQueue         bool                   `yaml:"use_queue" json:"use_queue" envconfig:"USE_QUEUE"`
	BatchSending     bool                   `yaml:"batch_sending" json:"batch_sending" envconfig:"BATCH_SENDING"`
	GraphURL         string                 `yaml:"graph_url" json:"graph_url" default:"https://graph.facebook.com" envconfig:"GRAPH_URL"`
	APIVersion       string                 `yaml:"api_version" json:"api_version" default:"v18.0" envconfig:"API_VERSION"`
	Timeout          int64                  `yaml:"timeout" json:"timeout" default:"30000"`
	ReloadInterval   uint32                 `yaml:"reload_interval" json:"reload_interval" default:"30" envconfig:"RELOAD_INTERVAL"`
	Pixels           []Pixel                `yaml:"pixels" json:"pixels"`
	Events           map[string]EventConfig `yaml:"events" json:"events"`
	CustomEvents     EventConfig            `yaml:"custom_events" json:"custom_events" envconfig:"CUSTOM_EVENTS"`
	AdvancedMatching AdvancedMatching       `yaml:"advanced_matching" json:"advanced_matching" envconfig:"ADVANCED_MATCHING"`
}

// PostProcess enables every standard event that the configuration does not mention.
func (cfg *TrackingConfig) PostProcess() error {
	if cfg.Events == nil {
		cfg.Events = make(map[string]EventConfig)
	}
	for _, name := range constants.StandardEvents {
		if _, ok := cfg.Events[name]; !ok {
			cfg.Events[name] = EventConfig{Pixel: true, CAPI: true}
		}
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")
	return nil
}

func (cfg TrackingConfig) Validate() error {
	u, err := url.Parse(cfg.GraphURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid graph_url: '%s'", cfg.GraphURL)
	}
	if !strings.HasPrefix(cfg.APIVersion, "v") {
		return fmt.Errorf("invalid api_version: '%s'", cfg.APIVersion)
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	seen := make(map[string]bool)
	for i, pixel := range cfg.Pixels {
		if err := pixel.Validate(); err != nil {
			return fmt.Errorf("pixels[%d]: %w", i, err)
		}
		if seen[pixel.PixelID] {
			return fmt.Errorf("pixels[%d]: duplicate pixel_id '%s'", i, pixel.PixelID)
		}
		seen[pixel.PixelID] = true
	}
	return nil
}

func (cfg TrackingConfig) TimeoutDuration() time.Duration {
	return time.Duration(cfg.Timeout) * time.Millisecond
}

// ActivePixels returns the pixels that are enabled and configured, in configuration order.
func (cfg TrackingConfig) ActivePixels() []Pixel {
	pixels := make([]Pixel, 0, len(cfg.Pixels))
	for _, pixel := range cfg.Pixels {
		if pixel.Enabled && pixel.IsConfigured() {
			pixels = append(pixels, pixel)
		}
	}
	return pixels
}

// IsEventEnabled reports whether the named event may be sent on the channel.
// Names outside the standard taxonomy follow the custom_events switch.
func (cfg TrackingConfig) IsEventEnabled(name string, ch Channel) bool {
	if ev, ok := cfg.Events[name]; ok {
		return ev.Enabled(ch)
	}
	if slices.Contains(constants.StandardEvents, name) {
		return false
	}
	return cfg.CustomEvents.Enabled(ch)
}

// TestEventCode returns the code to attach for the pixel, only while test mode is on.
func (cfg TrackingConfig) TestEventCode(pixel Pixel) string {
	if !cfg.TestMode {
		return ""
	}
	return pixel.TestEventCode
}

func (cfg TrackingConfig) Clone() *TrackingConfig {
	clone := cfg
	clone.Pixels = slices.Clone(cfg.Pixels)
	clone.Events = maps.Clone(cfg.Events)
	return &clone
}
