package delivery

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	. "github.com/onsi/ginkgo/v2"
	"github.com/stretchr/testify/assert"
	"github.com/trackify-io/trackify/app"
	"github.com/trackify-io/trackify/capi/capitest"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/types"
	"github.com/trackify-io/trackify/test/helper"
	"github.com/trackify-io/trackify/utils"
)

const purchase = `{
	"event_name": "Purchase",
	"event_id": "purchase_42",
	"custom_data": {"value": 99.99, "currency": "USD", "content_ids": ["42"]}
}`

func today() string {
	return time.Now().UTC().Format(entities.DateLayout)
}

func getLogs(client *resty.Client) []*entities.EventLog {
	var logs []*entities.EventLog
	resp, err := client.R().SetResult(&logs).Get("/logs")
	assert.Nil(GinkgoT(), err)
	assert.Equal(GinkgoT(), 200, resp.StatusCode())
	return logs
}

func getAnalytics(client *resty.Client) []*entities.EventAnalytics {
	var rows []*entities.EventAnalytics
	resp, err := client.R().SetQueryParam("date_from", today()).SetResult(&rows).Get("/analytics")
	assert.Nil(GinkgoT(), err)
	assert.Equal(GinkgoT(), 200, resp.StatusCode())
	return rows
}

var _ = Describe("delivery", Ordered, func() {

	Context("accepted by the pixel", func() {
		var app *app.Application
		var graph *capitest.GraphAPI
		var trackerClient, adminClient *resty.Client

		BeforeAll(func() {
			helper.InitDB()
			graph = capitest.NewGraphAPI(GinkgoT(), nil)
			trackerClient = helper.TrackerClient()
			adminClient = helper.AdminClient()
			app = utils.Must(helper.Start(map[string]string{
				"TRACKIFY_TRACKING_GRAPH_URL": graph.URL,
				"TRACKIFY_TRACKING_PIXELS":    helper.Pixels("111"),
			}))
		})

		AfterAll(func() {
			app.Stop()
		})

		It("writes a success log row and counts it", func() {
			var result model.DeliveryResult
			resp, err := trackerClient.R().
				SetHeader("Content-Type", "application/json").
				SetBody(purchase).
				SetResult(&result).
				Post("/track")
			assert.Nil(GinkgoT(), err)
			assert.Equal(GinkgoT(), 200, resp.StatusCode())
			assert.Equal(GinkgoT(), "purchase_42", result.EventID)
			assert.True(GinkgoT(), result.Pixels["111"].Success)
			assert.Equal(GinkgoT(), 1, result.Pixels["111"].EventsReceived)

			calls := graph.Calls()
			assert.Len(GinkgoT(), calls, 1)
			assert.Equal(GinkgoT(), "111", calls[0].PixelID)
			assert.Equal(GinkgoT(), "token-111", calls[0].Body["access_token"])

			logs := getLogs(adminClient)
			assert.Len(GinkgoT(), logs, 1)
			assert.Equal(GinkgoT(), entities.LogStatusSuccess, logs[0].Status)
			assert.Equal(GinkgoT(), 200, logs[0].ResponseCode)
			assert.Equal(GinkgoT(), "purchase_42", logs[0].EventID)

			rows := getAnalytics(adminClient)
			assert.Len(GinkgoT(), rows, 1)
			assert.EqualValues(GinkgoT(), 1, rows[0].TotalEvents)
			assert.EqualValues(GinkgoT(), 1, rows[0].SuccessfulEvents)
			assert.EqualValues(GinkgoT(), 0, rows[0].FailedEvents)
		})
	})

	Context("rejected by the pixel", func() {
		var app *app.Application
		var graph *capitest.GraphAPI
		var trackerClient, adminClient *resty.Client

		BeforeAll(func() {
			helper.InitDB()
			graph = capitest.NewGraphAPI(GinkgoT(), map[string][2]string{
				"111": {"400", `{"error":{"message":"Invalid parameter"}}`},
			})
			trackerClient = helper.TrackerClient()
			adminClient = helper.AdminClient()
			app = utils.Must(helper.Start(map[string]string{
				"TRACKIFY_TRACKING_GRAPH_URL": graph.URL,
				"TRACKIFY_TRACKING_PIXELS":    helper.Pixels("111"),
			}))
		})

		AfterAll(func() {
			app.Stop()
		})

		It("writes an error log row and reports the message", func() {
			resp, err := trackerClient.R().
				SetHeader("Content-Type", "application/json").
				SetBody(purchase).
				SetError(&types.ErrorResponse{}).
				Post("/track")
			assert.Nil(GinkgoT(), err)
			assert.Equal(GinkgoT(), 502, resp.StatusCode())
			assert.Equal(GinkgoT(), "delivery failed: 111: Invalid parameter", resp.Error().(*types.ErrorResponse).Message)

			logs := getLogs(adminClient)
			assert.Len(GinkgoT(), logs, 1)
			assert.Equal(GinkgoT(), entities.LogStatusError, logs[0].Status)
			assert.Equal(GinkgoT(), 400, logs[0].ResponseCode)
			assert.Equal(GinkgoT(), "Invalid parameter", logs[0].ErrorMessage)

			rows := getAnalytics(adminClient)
			assert.Len(GinkgoT(), rows, 1)
			assert.EqualValues(GinkgoT(), 1, rows[0].TotalEvents)
			assert.EqualValues(GinkgoT(), 0, rows[0].SuccessfulEvents)
			assert.EqualValues(GinkgoT(), 1, rows[0].FailedEvents)
		})
	})

	Context("conversions api disabled", func() {
		var app *app.Application
		var graph *capitest.GraphAPI
		var trackerClient *resty.Client
		var db *db.DB

		BeforeAll(func() {
			db = helper.InitDB()
			graph = capitest.NewGraphAPI(GinkgoT(), nil)
			trackerClient = helper.TrackerClient()
			app = utils.Must(helper.Start(map[string]string{
				"TRACKIFY_TRACKING_GRAPH_URL":    graph.URL,
				"TRACKIFY_TRACKING_PIXELS":       helper.Pixels("111"),
				"TRACKIFY_TRACKING_CAPI_ENABLED": "false",
			}))
		})

		AfterAll(func() {
			app.Stop()
			db.Close()
		})

		It("returns a configuration error without side effects", func() {
			resp, err := trackerClient.R().
				SetHeader("Content-Type", "application/json").
				SetBody(purchase).
				SetError(&types.ErrorResponse{}).
				Post("/track")
			assert.Nil(GinkgoT(), err)
			assert.Equal(GinkgoT(), 422, resp.StatusCode())
			assert.Equal(GinkgoT(), "conversions api is disabled", resp.Error().(*types.ErrorResponse).Message)

			assert.Empty(GinkgoT(), graph.Calls())
			n, err := db.EventLogs.Count(context.TODO(), nil)
			assert.Nil(GinkgoT(), err)
			assert.EqualValues(GinkgoT(), 0, n)
		})
	})

	Context("one of two pixels fails", func() {
		var app *app.Application
		var graph *capitest.GraphAPI
		var trackerClient, adminClient *resty.Client

		BeforeAll(func() {
			helper.InitDB()
			graph = capitest.NewGraphAPI(GinkgoT(), map[string][2]string{
				"222": {"500", `{"error":{"message":"Service temporarily unavailable"}}`},
			})
			trackerClient = helper.TrackerClient()
			adminClient = helper.AdminClient()
			app = utils.Must(helper.Start(map[string]string{
				"TRACKIFY_TRACKING_GRAPH_URL": graph.URL,
				"TRACKIFY_TRACKING_PIXELS":    helper.Pixels("111", "222"),
			}))
		})

		AfterAll(func() {
			app.Stop()
		})

		It("reports each pixel on its own", func() {
			var result model.DeliveryResult
			resp, err := trackerClient.R().
				SetHeader("Content-Type", "application/json").
				SetBody(purchase).
				SetResult(&result).
				Post("/track")
			assert.Nil(GinkgoT(), err)
			assert.Equal(GinkgoT(), 200, resp.StatusCode())
			assert.True(GinkgoT(), result.Pixels["111"].Success)
			assert.False(GinkgoT(), result.Pixels["222"].Success)
			assert.Equal(GinkgoT(), "Service temporarily unavailable", result.Pixels["222"].Error)
			assert.Len(GinkgoT(), graph.Calls(), 2)

			logs := getLogs(adminClient)
			assert.Len(GinkgoT(), logs, 2)
			statuses := map[string]string{}
			for _, log := range logs {
				statuses[log.PixelID] = log.Status
			}
			assert.Equal(GinkgoT(), map[string]string{
				"111": entities.LogStatusSuccess,
				"222": entities.LogStatusError,
			}, statuses)
		})
	})

	Context("queue", func() {
		var app *app.Application
		var graph *capitest.GraphAPI
		var trackerClient *resty.Client

		BeforeAll(func() {
			helper.InitDB()
			graph = capitest.NewGraphAPI(GinkgoT(), nil)
			trackerClient = helper.TrackerClient()
			app = utils.Must(helper.Start(map[string]string{
				"TRACKIFY_TRACKING_GRAPH_URL": graph.URL,
				"TRACKIFY_TRACKING_PIXELS":    helper.Pixels("111"),
				"TRACKIFY_TRACKING_USE_QUEUE": "true",
			}))
		})

		AfterAll(func() {
			app.Stop()
		})

		It("accepts first and delivers after the response", func() {
			var result model.DeliveryResult
			resp, err := trackerClient.R().
				SetHeader("Content-Type", "application/json").
				SetBody(purchase).
				SetResult(&result).
				Post("/track")
			assert.Nil(GinkgoT(), err)
			assert.Equal(GinkgoT(), 202, resp.StatusCode())
			assert.True(GinkgoT(), result.Queued)

			assert.Eventually(GinkgoT(), func() bool {
				return len(graph.Calls()) == 1
			}, time.Second*5, time.Millisecond*100)
		})
	})

	Context("woocommerce", func() {
		var app *app.Application
		var graph *capitest.GraphAPI
		var trackerClient *resty.Client

		BeforeAll(func() {
			helper.InitDB()
			graph = capitest.NewGraphAPI(GinkgoT(), nil)
			trackerClient = helper.TrackerClient()
			app = utils.Must(helper.Start(map[string]string{
				"TRACKIFY_TRACKING_GRAPH_URL": graph.URL,
				"TRACKIFY_TRACKING_PIXELS":    helper.Pixels("111"),
			}))
		})

		AfterAll(func() {
			app.Stop()
		})

		It("tracks a paid order once", func() {
			order := `{
				"id": 1001,
				"status": "processing",
				"currency": "EUR",
				"total": "59.90",
				"billing": {"email": "buyer@example.com"},
				"line_items": [{"product_id": 7, "variation_id": 0, "quantity": 2, "total": "59.90"}]
			}`
			for i := 0; i < 2; i++ {
				resp, err := trackerClient.R().
					SetHeader("Content-Type", "application/json").
					SetHeader("X-WC-Webhook-Topic", "order.updated").
					SetBody(order).
					Post("/integrations/woocommerce/webhook")
				assert.Nil(GinkgoT(), err)
				assert.Equal(GinkgoT(), 200, resp.StatusCode())
			}

			calls := graph.Calls()
			assert.Len(GinkgoT(), calls, 1)
			event := calls[0].Body["data"].([]interface{})[0].(map[string]interface{})
			assert.Equal(GinkgoT(), "Purchase", event["event_name"])
			assert.Equal(GinkgoT(), "purchase_1001", event["event_id"])
		})
	})
})
