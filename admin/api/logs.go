package api

import (
	"net/http"

	"github.com/trackify-io/trackify/eventlog"
)

func (api *API) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := api.queryInt(r, "limit", eventlog.DefaultLimit)
	if err != nil {
		api.error(400, w, err)
		return
	}

	filters := eventlog.Filters{
		EventName: api.query(r, "event_name"),
		PixelID:   api.query(r, "pixel_id"),
		Status:    api.query(r, "status"),
		DateFrom:  api.query(r, "date_from"),
		DateTo:    api.query(r, "date_to"),
	}
	list, err := api.eventlog.GetRecentLogs(r.Context(), limit, filters)
	api.assert(err)

	api.json(200, w, list)
}

func (api *API) ClearLogs(w http.ResponseWriter, r *http.Request) {
	err := api.eventlog.ClearAllLogs(r.Context())
	api.assert(err)

	api.json(204, w, nil)
}

func (api *API) CleanupLogs(w http.ResponseWriter, r *http.Request) {
	result, err := api.eventlog.CleanupOldLogs(r.Context())
	api.assert(err)

	api.json(200, w, result)
}
