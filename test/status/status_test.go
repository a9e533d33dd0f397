package status

import (
	"github.com/go-resty/resty/v2"
	. "github.com/onsi/ginkgo/v2"
	"github.com/stretchr/testify/assert"
	"github.com/trackify-io/trackify/app"
	"github.com/trackify-io/trackify/status"
	"github.com/trackify-io/trackify/test/helper"
	"github.com/trackify-io/trackify/utils"
)

var _ = Describe("status", Ordered, func() {

	var app *app.Application
	var statusClient *resty.Client

	BeforeAll(func() {
		helper.InitDB()
		app = utils.Must(helper.Start(map[string]string{
			"TRACKIFY_TRACKING_PIXELS":        helper.Pixels("111", "222"),
			"TRACKIFY_STATUS_DEBUG_ENDPOINTS": "false",
		}))
		statusClient = helper.StatusClient()
	})

	AfterAll(func() {
		app.Stop()
	})

	It("/", func() {
		resp, err := statusClient.R().
			SetResult(&status.StatusResponse{}).
			Get("/")
		assert.Nil(GinkgoT(), err)
		assert.Equal(GinkgoT(), 200, resp.StatusCode())
		r := resp.Result().(*status.StatusResponse)
		assert.Equal(GinkgoT(), 2, r.Tracking.ActivePixels)
		assert.EqualValues(GinkgoT(), 0, r.Logs.Total)
	})

	It("/health", func() {
		resp, err := statusClient.R().
			SetResult(&status.HealthResponse{}).
			Get("/health")
		assert.Nil(GinkgoT(), err)
		assert.Equal(GinkgoT(), 200, resp.StatusCode())
		r := resp.Result().(*status.HealthResponse)
		assert.Equal(GinkgoT(), "UP", r.Status)
		assert.Equal(GinkgoT(), 1, len(r.Components)) // db, no redis configured
		assert.Equal(GinkgoT(), "UP", r.Components["db"].Status)
	})

	It("debug endpoints are off", func() {
		resp, err := statusClient.R().Get("/debug/pprof/")
		assert.Nil(GinkgoT(), err)
		assert.Equal(GinkgoT(), 404, resp.StatusCode())
	})
})
