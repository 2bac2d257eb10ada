package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "seiri",
	Short: "Seiri event synchronizer",
	Long:  `Seiri tails a coding agent server's event stream and maintains an ordered, deduplicated local mirror of its sessions, messages and parts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seiri/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "introspection API port")
	rootCmd.PersistentFlags().String("stream.endpoint", config.DefaultStreamEndpoint, "event stream endpoint")
}
