package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	homeLineup []string
	awayLineup []string
)

func init() {
	rootCmd.AddCommand(liveCmd)
	liveCmd.AddCommand(liveOpenCmd, liveShowCmd, liveCloseCmd, liveLineupCmd, liveCancelCmd,
		liveStartCmd, liveEndJamCmd, liveAdjustCmd, liveLeadCmd, liveEndBoutCmd)

	liveStartCmd.Flags().StringSliceVar(&homeLineup, "home", nil, "Home skaters in the jam (comma separated player ids)")
	liveStartCmd.Flags().StringSliceVar(&awayLineup, "away", nil, "Away skaters in the jam (comma separated player ids)")
	liveStartCmd.MarkFlagRequired("home")
	liveStartCmd.MarkFlagRequired("away")
}

func livePath(boutID string, suffix ...string) string {
	return "/api/bouts/" + boutID + "/live" + strings.Join(suffix, "")
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Drive live tracking of a bout",
}

var liveOpenCmd = &cobra.Command{
	Use:   "open <bout-id>",
	Short: "Open the live session of a bout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0]), nil)
	},
}

var liveShowCmd = &cobra.Command{
	Use:   "show <bout-id>",
	Short: "Show the current live snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, livePath(args[0]), nil)
	},
}

var liveCloseCmd = &cobra.Command{
	Use:   "close <bout-id>",
	Short: "Drop the live session without ending the bout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, livePath(args[0]), nil)
	},
}

var liveLineupCmd = &cobra.Command{
	Use:   "lineup <bout-id>",
	Short: "Start selecting lineups for the next jam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0], "/lineup"), nil)
	},
}

var liveCancelCmd = &cobra.Command{
	Use:   "cancel <bout-id>",
	Short: "Cancel lineup selection and return to the previous jam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0], "/lineup/cancel"), nil)
	},
}

var liveStartCmd = &cobra.Command{
	Use:   "start <bout-id> --home a,b --away c,d",
	Short: "Start a jam with the given lineups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0], "/jam/start"), map[string][]string{
			"home": homeLineup,
			"away": awayLineup,
		})
	},
}

var liveEndJamCmd = &cobra.Command{
	Use:   "end-jam <bout-id>",
	Short: "End the active jam and fold its points into the score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0], "/jam/end"), nil)
	},
}

var liveAdjustCmd = &cobra.Command{
	Use:   "adjust <bout-id> <player-id> <field> <delta>",
	Short: "Adjust a player's stat, e.g. adjust b1 p1 points_scored 4",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[3])
		if err != nil {
			return err
		}
		return performRequest(http.MethodPost, livePath(args[0], "/stats"), map[string]any{
			"player_id": args[1],
			"field":     args[2],
			"delta":     delta,
		})
	},
}

var liveLeadCmd = &cobra.Command{
	Use:   "lead <bout-id> <player-id>",
	Short: "Toggle lead jammer for a player",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0], "/stats/lead-jammer"), map[string]string{
			"player_id": args[1],
		})
	},
}

var liveEndBoutCmd = &cobra.Command{
	Use:   "end-bout <bout-id>",
	Short: "Complete the bout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, livePath(args[0], "/end"), nil)
	},
}
