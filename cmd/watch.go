package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Musio/core/ingest"
	"Musio/db"
	"Musio/logger"
	"Musio/model"
	"Musio/repository"
	"Musio/storage"

	"github.com/spf13/cobra"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "监听目录并自动导入歌曲",
	Long:  `监听目录中新出现的音频文件，上传到MinIO并登记到曲库。处理完的文件会移动到 imported/ 子目录。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setup()
		defer logger.Sync()

		dir := watchDir
		if dir == "" {
			dir = cfg.IngestDir
		}
		if dir == "" {
			log.Fatal("需要通过 --dir 或 INGEST_DIR 指定目录")
		}

		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			log.Fatalf("无法连接数据库: %v", err)
		}
		defer db.CloseGormDB()
		if err := db.AutoMigrate(gdb); err != nil {
			log.Fatalf("数据库迁移失败: %v", err)
		}

		client, err := storage.NewClient(cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := storage.EnsureBucket(ctx, client, cfg); err != nil {
			log.Fatalf("准备存储桶失败: %v", err)
		}

		media := storage.NewMediaStore(client, cfg.MinioBucket, cfg.PublicObjectBase())
		watcher := ingest.NewWatcher(dir, media, repository.NewGormTrackRepository(gdb),
			ingest.WithOnImported(func(t *model.Track) {
				fmt.Printf("已导入: %s (%s)\n", t.Title, t.ID)
			}))

		fmt.Printf("正在监听: %s\n", dir)
		if err := watcher.Run(ctx); err != nil {
			log.Fatalf("监听失败: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "要监听的目录，默认使用 INGEST_DIR")
}
