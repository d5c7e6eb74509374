package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"Musio/core/seed"
	"Musio/db"
	"Musio/repository"

	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "导入示例歌曲和歌单",
	Long:  `从JSON文件导入歌曲和歌单。已存在的歌曲（按标题）和歌单（按名称）会被复用，可重复执行。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setup()

		f, err := os.Open(seedFile)
		if err != nil {
			log.Fatalf("打开种子文件失败: %v", err)
		}
		defer f.Close()
		batches, err := seed.Decode(f)
		if err != nil {
			log.Fatal(err)
		}

		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			log.Fatalf("无法连接数据库: %v", err)
		}
		defer db.CloseGormDB()
		if err := db.AutoMigrate(gdb); err != nil {
			log.Fatalf("数据库迁移失败: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res, err := seed.Apply(ctx, repository.NewGormTrackRepository(gdb), repository.NewGormPlaylistRepository(gdb), batches)
		if err != nil {
			log.Fatalf("导入失败: %v", err)
		}
		fmt.Printf("✅ 新建歌曲 %d，复用 %d；新建歌单 %d；新增关联 %d\n",
			res.SongsCreated, res.SongsReused, res.PlaylistsCreated, res.TracksLinked)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed.json", "种子文件路径")
}
