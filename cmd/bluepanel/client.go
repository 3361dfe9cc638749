package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// BLUEPANEL_URL points the client commands at a server other than the one
// named in the config file.
const serverURLEnv = "BLUEPANEL_URL"

func newLaunchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "launch NAME",
		Short: "Record a launch on the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAction(cmd, root, "launch", args[0])
		},
	}
}

func newFavoriteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite NAME",
		Short: "Toggle the favorite flag on the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAction(cmd, root, "toggle-favorite", args[0])
		},
	}
}

func serverURL(root *rootOptions) (string, error) {
	if base := os.Getenv(serverURLEnv); base != "" {
		return strings.TrimSuffix(base, "/"), nil
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return "", err
	}
	return cfg.Server.BaseURL(), nil
}

func postAction(cmd *cobra.Command, root *rootOptions, action, name string) error {
	base, err := serverURL(root)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(base+"/"+action+"/"+url.PathEscape(name), "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to reach bluepanel at %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %q: %s", action, name, responseError(resp))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", action, name)
	return nil
}

func responseError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}
