package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newAdminDumpCmd() *cobra.Command {
	var (
		addr    string
		timeout int
	)

	dump := &cobra.Command{
		Use:   "dump",
		Short: "Dump the tracking settings of a running server, access tokens masked",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := http.NewRequest("GET", addr+"/settings", nil)
			if err != nil {
				return err
			}

			content, err := sendHTTPRequest(r, time.Duration(timeout)*time.Second)
			if err != nil {
				return err
			}

			cmd.Print(content)
			return nil
		},
	}

	dump.Flags().StringVarP(&addr, "addr", "", AdminURL, "HTTP address of Trackify's Admin API.")
	dump.Flags().IntVarP(&timeout, "timeout", "", 10, "Set the request timeout for the client to connect with Trackify (in seconds).")

	return dump
}
