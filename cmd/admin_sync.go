package cmd

import (
	"bytes"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newAdminSyncCmd() *cobra.Command {
	var (
		addr    string
		timeout int
	)

	sync := &cobra.Command{
		Use:   "sync [flags] filename",
		Short: "Apply a JSON settings document to a running server.",
		Long:  `Fields missing from the document keep their value, masked access tokens keep the stored token.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			r, err := http.NewRequest("PATCH", addr+"/settings", bytes.NewBuffer(b))
			if err != nil {
				return err
			}
			r.Header.Set("Content-Type", "application/json")

			content, err := sendHTTPRequest(r, time.Duration(timeout)*time.Second)
			if err != nil {
				return err
			}

			if verbose {
				cmd.Println(content)
			}
			cmd.Println("sync successfully")

			return nil
		},
	}

	sync.Flags().StringVarP(&addr, "addr", "", AdminURL, "HTTP address of Trackify's Admin API.")
	sync.Flags().IntVarP(&timeout, "timeout", "", 10, "Set the request timeout for the client to connect with Trackify (in seconds).")

	return sync
}
