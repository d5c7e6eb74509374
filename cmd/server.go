package cmd

import (
	"Musio/logger"
	"Musio/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动Musio服务器",
	Long:  `启动Musio的HTTP服务器，提供曲库、歌单、推荐和播放会话API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := setup()
		defer logger.Sync()
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
