package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/trackify-io/trackify"
)

var ANSWERS = map[string]bool{
	"y":   true,
	"yes": true,
	"n":   false,
	"no":  false,
}

func prompt(cmd *cobra.Command, q string) bool {
	cmd.Print("> " + q + " [Y/N] ")
	var answer string
	_, _ = fmt.Fscan(cmd.InOrStdin(), &answer)
	return ANSWERS[strings.ToLower(answer)]
}

func sendHTTPRequest(r *http.Request, timeout time.Duration) (string, error) {
	r.Header.Set("User-Agent", "Trackify/"+trackify.VERSION)
	client := http.Client{
		Timeout: timeout,
	}
	resp, err := client.Do(r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("invalid status code: %d %s", resp.StatusCode, string(b))
	}

	return string(b), nil
}
