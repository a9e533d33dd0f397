package app

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	"github.com/stretchr/testify/assert"
	"github.com/trackify-io/trackify/app"
	"github.com/trackify-io/trackify/test/helper"
	"github.com/trackify-io/trackify/utils"
)

var _ = Describe("app", Ordered, func() {

	It("refuses to start on a database that is not migrated", func() {
		_ = os.Remove(helper.DatabasePath)
		cfg := utils.Must(helper.LoadConfig(nil))
		a := utils.Must(app.New(cfg))
		err := a.Start()
		assert.NotNil(GinkgoT(), err)
		assert.Equal(GinkgoT(), "database is not up to date. Run 'trackify db up' before starting", err.Error())
	})

	It("start and stop", func() {
		helper.InitDB()
		cfg := utils.Must(helper.LoadConfig(nil))
		a := utils.Must(app.New(cfg))

		assert.Nil(GinkgoT(), a.Start())
		assert.Equal(GinkgoT(), app.ErrApplicationStarted, a.Start())

		go a.Wait()
		assert.Nil(GinkgoT(), a.Stop())
		assert.Equal(GinkgoT(), app.ErrApplicationStopped, a.Stop())
	})

	It("registers the scheduled tasks", func() {
		helper.InitDB()
		cfg := utils.Must(helper.LoadConfig(nil))
		a := utils.Must(app.New(cfg))
		assert.NotNil(GinkgoT(), a.Scheduler().GetTask(app.TaskCleanupLogs))
		assert.NotNil(GinkgoT(), a.Scheduler().GetTask(app.TaskReloadSettings))
	})

	It("rejects an unknown integration", func() {
		cfg := utils.Must(helper.LoadConfig(map[string]string{
			"TRACKIFY_TRACKER_INTEGRATIONS": "[woocommerce, shopify]",
		}))
		_, err := app.New(cfg)
		assert.NotNil(GinkgoT(), err)
		assert.Equal(GinkgoT(), "unknown integration 'shopify'", err.Error())
	})
})
