package main

import (
	"github.com/spf13/cobra"

	"github.com/emilythestrangee/devcove/internal/config"
)

var (
	configPath string
	logPath    string

	rootCmd = &cobra.Command{
		Use:           "devcove",
		Short:         "Forum API and live vote/notification client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the forum API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Browse the feed, vote and follow notifications in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (env vars override it)")
	watchCmd.Flags().StringVar(&logPath, "log-file", "", "write client logs to this file instead of discarding them")

	rootCmd.AddCommand(serveCmd, watchCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
