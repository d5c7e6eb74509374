package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"Musio/config"
	"Musio/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中的歌曲与封面，支持列出文件、查看统计信息、递归显示目录结构、删除目录等功能。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		client, err := storage.NewClient(cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		inspector := storage.NewInspector(client, cfg.MinioBucket, os.Stdout)
		ctx := context.Background()

		switch {
		case minioDelete:
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定目录前缀")
			}
			fmt.Printf("\n删除目录: %s\n", minioPrefix)
			n, err := inspector.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("删除目录失败: %v", err)
			}
			fmt.Printf("已删除 %d 个对象\n", n)
		case minioRecursive:
			fmt.Printf("\n递归显示目录结构 (前缀: %s)...\n", minioPrefix)
			if err := inspector.PrintTree(ctx, minioPrefix); err != nil {
				log.Fatalf("显示目录结构失败: %v", err)
			}
		case minioStats:
			fmt.Println("\n获取存储桶统计信息...")
			if err := inspector.PrintStats(ctx); err != nil {
				log.Fatalf("获取存储桶统计信息失败: %v", err)
			}
		default:
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			if err := inspector.PrintList(ctx, minioPrefix); err != nil {
				log.Fatalf("列出文件失败: %v", err)
			}
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "递归显示目录结构")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	minioCmd.Example = `  # 列出所有文件
  musio minio

  # 只看歌曲
  musio minio -p "songs/"

  # 显示存储桶统计信息
  musio minio -s

  # 递归显示目录结构
  musio minio -r

  # 删除歌单封面目录
  musio minio -d -p "playlist_covers/"`
}
