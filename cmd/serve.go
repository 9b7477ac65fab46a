package cmd

import (
	"github.com/spf13/cobra"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		return StartWebServer(cmd.Context(), cfg, settingsPath())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for the web server")
}
