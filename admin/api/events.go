package api

import (
	"errors"
	"net/http"

	"github.com/trackify-io/trackify/capi"
	"github.com/trackify-io/trackify/pkg/types"
)

// SendTestEvent sends a PageView to every active pixel and reports the
// outcome per pixel.
func (api *API) SendTestEvent(w http.ResponseWriter, r *http.Request) {
	result, err := api.engine.SendTestEvent(r.Context())
	if err != nil {
		var configErr *capi.ConfigError
		var deliveryErr *capi.DeliveryError
		switch {
		case errors.As(err, &configErr):
			api.error(422, w, err)
		case errors.As(err, &deliveryErr):
			api.json(502, w, types.ErrorResponse{Message: err.Error(), Error: result})
		default:
			panic(err)
		}
		return
	}

	api.json(200, w, result)
}
