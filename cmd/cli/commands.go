package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(teamsCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(boutsCmd)
	rootCmd.AddCommand(summaryCmd)

	teamsCmd.AddCommand(teamsGetCmd, teamsCreateCmd, teamsDeleteCmd, teamsRosterCmd)
	playersCmd.AddCommand(playersDeleteCmd)
	boutsCmd.AddCommand(boutsGetCmd, boutsDeleteCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the league overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/dashboard", nil)
	},
}

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List the teams in the league",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/teams", nil)
	},
}

var teamsGetCmd = &cobra.Command{
	Use:   "get <team-id>",
	Short: "Show a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/teams/"+args[0], nil)
	},
}

var teamsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/api/teams", map[string]string{"name": strings.Join(args, " ")})
	},
}

var teamsDeleteCmd = &cobra.Command{
	Use:   "delete <team-id>",
	Short: "Delete a team with its memberships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/api/teams/"+args[0], nil)
	},
}

var teamsRosterCmd = &cobra.Command{
	Use:   "roster <team-id>",
	Short: "List the active roster of a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/teams/"+args[0]+"/roster", nil)
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the players in the league",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/players", nil)
	},
}

var playersDeleteCmd = &cobra.Command{
	Use:   "delete <player-id>",
	Short: "Delete a player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/api/players/"+args[0], nil)
	},
}

var boutsCmd = &cobra.Command{
	Use:   "bouts",
	Short: "List the bouts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/bouts", nil)
	},
}

var boutsGetCmd = &cobra.Command{
	Use:   "get <bout-id>",
	Short: "Show a bout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/bouts/"+args[0], nil)
	},
}

var boutsDeleteCmd = &cobra.Command{
	Use:   "delete <bout-id>",
	Short: "Delete a bout with its stat lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/api/bouts/"+args[0], nil)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <bout-id>",
	Short: "Show the summary of a bout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/api/bouts/"+args[0]+"/summary", nil)
	},
}

func performRequest(method, endpoint string, payload any) error {
	url := host + endpoint
	fmt.Printf("Making %s request to %s\n", method, url)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	return nil
}
