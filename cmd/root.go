package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          "dashboard",
		SilenceUsage: true,
		Short:        "Manufacturing simulation dashboard",
		Long: `Dashboard for the manufacturing simulation backend.

Functions:
- Serve the purchases, inventory, plan, production, products and simulator panels as JSON
- Stream operator notifications over a websocket
- Advance the simulation and inspect its event history from the terminal`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to display help")
			}
		},
	}
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yaml or app.env")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(versionCmd)
}
