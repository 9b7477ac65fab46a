package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tubedeck/config"
	"tubedeck/handlers"
	"tubedeck/remote"
)

var (
	configPath string
	debug      bool
	serviceURL string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:     "tubedeck",
	Short:   "tubedeck queues video downloads on a remote download service",
	Version: handlers.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serviceURL != "" {
			loaded.ServiceURL = serviceURL
		}
		if debug {
			loaded.Debug = true
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		InitLogger(cfg.Debug)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default ~/.tubedeck.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", "", "Base URL of the download service")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(formatsCmd)
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		printError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRemoteClient(c config.Config) (*remote.Client, error) {
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL: c.ServiceURL,
		Timeout: c.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring download service client: %w", err)
	}
	return client, nil
}

func settingsPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}
