package cmd

import (
	"fmt"
	"os"

	"Musio/config"
	"Musio/logger"
	"Musio/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "musio",
	Short: "Musio is a self-hosted music library and player backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := setup()
		defer logger.Sync()
		return server.Start(cfg)
	},
}

// setup loads the configuration and initializes the logger.
func setup() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	return cfg
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
