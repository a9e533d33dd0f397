package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/trackify-io/trackify/settings"
)

func (api *API) GetSettings(w http.ResponseWriter, r *http.Request) {
	api.json(200, w, api.settings.Get())
}

// UpdateSettings merges the body into the tracking settings. Access tokens
// sent back masked keep their stored value.
func (api *API) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.error(400, w, err)
		return
	}

	cfg, err := api.settings.Patch(r.Context(), body)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			api.error(400, w, err)
			return
		}
		panic(err)
	}

	api.json(200, w, cfg)
}
