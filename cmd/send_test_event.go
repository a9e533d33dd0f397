package cmd

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"
	"github.com/trackify-io/trackify/capi"
	"github.com/trackify-io/trackify/settings"
	"go.uber.org/zap"
)

func newSendTestEventCmd() *cobra.Command {
	send := &cobra.Command{
		Use:               "send-test-event",
		Short:             "Send a PageView test event to every active pixel",
		Long:              ``,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, d, err := newEventLog()
			if err != nil {
				return err
			}
			defer d.Close()
			defer logger.Close()

			store := settings.New(&cfg.Tracking, d)
			if err := store.Reload(cmd.Context()); err != nil {
				return err
			}
			engine := capi.New(capi.Options{
				Settings: store,
				Recorder: logger,
				Log:      zap.S(),
			})

			result, err := engine.SendTestEvent(cmd.Context())
			var deliveryErr *capi.DeliveryError
			if err != nil && !errors.As(err, &deliveryErr) {
				return err
			}

			cmd.Printf("event %s\n", result.EventID)
			ids := make([]string, 0, len(result.Pixels))
			for id := range result.Pixels {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				pixel := result.Pixels[id]
				if pixel.Success {
					cmd.Printf("  %s: ok (events_received=%d)\n", id, pixel.EventsReceived)
				} else {
					cmd.Printf("  %s: failed: %s\n", id, pixel.Error)
				}
			}
			return err
		},
	}

	send.PersistentFlags().StringVarP(&configurationFile, "config", "", "", "The configuration filename")

	return send
}
