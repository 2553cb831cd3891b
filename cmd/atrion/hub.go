package main

import (
	"atrion/internal/hubrunner"

	"github.com/spf13/cobra"
)

var hubCmd = &cobra.Command{
	Use:   "hub",
	Args:  cobra.NoArgs,
	Short: "Run the standalone state-sync hub (same logic as cmd/atrion-hub)",
	RunE:  runHub,
}

func init() {
	hubCmd.Flags().String("listen", ":9091", "address to serve the REST+websocket sync surface on")
	hubCmd.Flags().String("channel", "", "broadcast channel name (defaults to atrion:sync)")
}

func runHub(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	channel, _ := cmd.Flags().GetString("channel")
	return hubrunner.Run(hubrunner.Options{
		Addr:    listen,
		Channel: channel,
		Logger:  newCLILogger(),
	})
}
