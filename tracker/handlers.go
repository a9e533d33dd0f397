package tracker

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/trackify-io/trackify/adapters"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/errs"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/pkg/types"
	"github.com/trackify-io/trackify/utils"
)

// TrackRequest is an event reported by the browser script. UserData values
// are raw and get hashed, Customer is used when UserData is empty.
type TrackRequest struct {
	EventName  string             `json:"event_name" validate:"required,max=50"`
	EventID    string             `json:"event_id" validate:"max=255"`
	SourceURL  string             `json:"source_url"`
	CustomData model.CustomData   `json:"custom_data"`
	UserData   model.UserData     `json:"user_data"`
	Customer   *identity.Customer `json:"customer"`
}

type EventIDRequest struct {
	Prefix     string `json:"prefix"`
	Identifier string `json:"identifier"`
}

type EventIDResponse struct {
	EventID string `json:"event_id"`
}

// PixelConfigResponse tells the browser script what to fire client side.
type PixelConfigResponse struct {
	Enabled  bool     `json:"enabled"`
	PixelIDs []string `json:"pixel_ids"`
	Events   []string `json:"events"`
	Custom   bool     `json:"custom_events"`
}

func badRequest(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		response.JSON(w, http.StatusRequestEntityTooLarge, types.ErrorResponse{Message: "request entity too large"})
		return
	}
	if e, ok := err.(*errs.ValidateError); ok {
		response.JSON(w, 400, types.ErrorResponse{Message: "Request Validation", Error: e})
		return
	}
	response.JSON(w, 400, types.ErrorResponse{Message: err.Error()})
}

func (t *Tracker) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}
	if err := utils.Validate(&req); err != nil {
		badRequest(w, err)
		return
	}

	ctx := r.Context()
	if rc, ok := identity.FromContext(ctx); ok {
		sourceURL := req.SourceURL
		if sourceURL == "" {
			sourceURL = r.Referer()
		}
		rc.SetSourceURL(sourceURL)
	}
	if req.Customer != nil {
		ctx = identity.WithCustomer(ctx, req.Customer)
	}

	adapters.Track(w, r.WithContext(ctx), t.engine, req.EventName, req.CustomData, req.UserData, req.EventID)
}

// EventID returns an id the browser pixel passes as eventID so Meta can
// deduplicate it against the server event.
func (t *Tracker) EventID(w http.ResponseWriter, r *http.Request) {
	var req EventIDRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, err)
			return
		}
	}
	response.JSON(w, 200, EventIDResponse{
		EventID: t.engine.GenerateEventID(req.Prefix, req.Identifier),
	})
}

func (t *Tracker) PixelConfig(w http.ResponseWriter, r *http.Request) {
	cfg := t.settings.Get()
	resp := PixelConfigResponse{
		Enabled:  cfg.PixelEnabled,
		PixelIDs: make([]string, 0),
		Events:   make([]string, 0),
		Custom:   cfg.PixelEnabled && cfg.CustomEvents.Pixel,
	}
	if cfg.PixelEnabled {
		for _, pixel := range cfg.Pixels {
			if pixel.Enabled && pixel.PixelID != "" {
				resp.PixelIDs = append(resp.PixelIDs, pixel.PixelID)
			}
		}
		for name := range cfg.Events {
			if cfg.IsEventEnabled(name, modules.ChannelPixel) {
				resp.Events = append(resp.Events, name)
			}
		}
		sort.Strings(resp.Events)
	}
	response.JSON(w, 200, resp)
}
