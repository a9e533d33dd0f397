package api

import (
	"net/http"
)

const DefaultStatsDays = 7

func (api *API) GetStats(w http.ResponseWriter, r *http.Request) {
	days, err := api.queryInt(r, "days", DefaultStatsDays)
	if err != nil {
		api.error(400, w, err)
		return
	}

	stats, err := api.eventlog.GetEventStats(r.Context(), days)
	api.assert(err)

	api.json(200, w, stats)
}

func (api *API) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	list, err := api.eventlog.GetAnalytics(r.Context(),
		api.query(r, "date_from"),
		api.query(r, "date_to"),
		api.query(r, "pixel_id"))
	api.assert(err)

	api.json(200, w, list)
}
