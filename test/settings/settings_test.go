package settings

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	. "github.com/onsi/ginkgo/v2"
	"github.com/stretchr/testify/assert"
	"github.com/trackify-io/trackify/app"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/settings"
	"github.com/trackify-io/trackify/test/helper"
	"github.com/trackify-io/trackify/tracker"
	"github.com/trackify-io/trackify/utils"
)

func pixelConfig(client *resty.Client) *tracker.PixelConfigResponse {
	resp, err := client.R().SetResult(&tracker.PixelConfigResponse{}).Get("/track/config")
	assert.Nil(GinkgoT(), err)
	assert.Equal(GinkgoT(), 200, resp.StatusCode())
	return resp.Result().(*tracker.PixelConfigResponse)
}

var _ = Describe("settings", Ordered, func() {

	var app *app.Application
	var db *db.DB
	var trackerClient, adminClient *resty.Client

	BeforeAll(func() {
		db = helper.InitDB()
		app = utils.Must(helper.Start(map[string]string{
			"TRACKIFY_TRACKING_PIXELS":          helper.Pixels("111"),
			"TRACKIFY_TRACKING_RELOAD_INTERVAL": "1",
		}))
		trackerClient = helper.TrackerClient()
		adminClient = helper.AdminClient()
	})

	AfterAll(func() {
		app.Stop()
		db.Close()
	})

	It("applies admin changes immediately", func() {
		resp, err := adminClient.R().
			SetHeader("Content-Type", "application/json").
			SetBody(`{"events": {"Purchase": {"pixel": false, "capi": true}}}`).
			Patch("/settings")
		assert.Nil(GinkgoT(), err)
		assert.Equal(GinkgoT(), 200, resp.StatusCode())

		cfg := pixelConfig(trackerClient)
		assert.NotContains(GinkgoT(), cfg.Events, "Purchase")
		assert.Contains(GinkgoT(), cfg.Events, "Lead")
	})

	It("picks up changes saved by another node", func() {
		other := settings.New(app.Settings().Get(), db)
		time.Sleep(time.Millisecond * 10) // distinct updated_at
		_, err := other.Update(context.TODO(), func(cfg *modules.TrackingConfig) {
			cfg.Pixels = append(cfg.Pixels, modules.Pixel{PixelID: "222", AccessToken: "token-222", Enabled: true})
		})
		assert.Nil(GinkgoT(), err)

		assert.Eventually(GinkgoT(), func() bool {
			return len(pixelConfig(trackerClient).PixelIDs) == 2
		}, time.Second*5, time.Millisecond*200)
	})
})
