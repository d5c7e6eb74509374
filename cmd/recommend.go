package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"Musio/core/recommend"
	"Musio/db"
	"Musio/repository"

	"github.com/spf13/cobra"
)

var (
	recType    string
	recBasedOn string
	recGenre   string
	recLimit   int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "在命令行查看推荐结果",
	Long:  `直接读取曲库并打印推荐列表，用于调试评分。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setup()

		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			log.Fatalf("无法连接数据库: %v", err)
		}
		defer db.CloseGormDB()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := recommend.NewService(repository.NewGormTrackRepository(gdb), nil, cfg.RecommendLimit)
		resp, err := svc.Recommend(ctx, recommend.Request{
			Mode:   recommend.Mode(recType),
			SeedID: recBasedOn,
			Genre:  recGenre,
			Limit:  recLimit,
		})
		if err != nil {
			log.Fatalf("生成推荐失败: %v", err)
		}

		fmt.Printf("模式: %s, 命中: %d\n\n", resp.Mode, resp.TotalFound)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tTITLE\tARTIST\tGENRE\tREASON")
		for _, c := range resp.Candidates {
			fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n", c.Score, c.Title, c.ArtistOrDefault(), c.GenreOrDefault(), c.Reason)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVarP(&recType, "type", "t", "", "推荐类型: trending, genre, similar, default")
	recommendCmd.Flags().StringVarP(&recBasedOn, "based-on", "b", "", "相似推荐的种子歌曲ID")
	recommendCmd.Flags().StringVarP(&recGenre, "genre", "g", "", "流派")
	recommendCmd.Flags().IntVarP(&recLimit, "limit", "l", 0, "返回数量")
}
