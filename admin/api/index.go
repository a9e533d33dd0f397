package api

import (
	"net/http"

	"github.com/trackify-io/trackify"
	"github.com/trackify-io/trackify/config"
)

type IndexResponse struct {
	Version       string         `json:"version"`
	Message       string         `json:"message"`
	Configuration *config.Config `json:"configuration"`
}

func (api *API) Index(w http.ResponseWriter, r *http.Request) {
	var response IndexResponse

	response.Version = trackify.VERSION
	response.Message = "Welcome to Trackify"
	response.Configuration = api.cfg

	api.json(200, w, response)
}
