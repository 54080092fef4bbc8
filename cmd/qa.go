package cmd

import (
	"encoding/json"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/eryajf/qabot/internal/database"
	"github.com/eryajf/qabot/internal/qa"
)

var (
	qaOutputType string
	qaPageSize   int
	qaPageNum    int
	qaCategory   string
	qaSearch     string
)

// qaCmd 知识库命令组
var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "查询知识库",
	Long:  `查询本地知识库中的问答记录与统计信息。`,
}

// qaListCmd 列出问答记录
var qaListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出问答记录",
	Long:  `分页列出知识库中的问答记录，支持分类与关键字过滤。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close(db)

		store := qa.NewStore(db)
		records, total, err := store.List(qaPageNum, qaPageSize, qaCategory, qaSearch)
		if err != nil {
			return fmt.Errorf("failed to list qa records: %w", err)
		}

		// 输出结果
		if qaOutputType == "json" {
			data, _ := json.MarshalIndent(records, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		// 使用 lipgloss/table 表格输出
		rows := [][]string{}
		for _, r := range records {
			answer := r.CurrentAnswer
			if len([]rune(answer)) > 40 {
				answer = string([]rune(answer)[:40]) + "..."
			}

			rows = append(rows, []string{
				r.ID,
				r.Question,
				answer,
				r.Category,
				fmt.Sprintf("%d", r.UsageCount),
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
			Headers("ID", "Question", "Answer", "Category", "Usage").
			Rows(rows...)

		fmt.Println(t)
		fmt.Println()
		logx.Info("Query completed, total %d", total)
		return nil
	},
}

// qaStatsCmd 输出知识库统计信息
var qaStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "查看知识库统计",
	Long:  `输出知识库的记录总数、累计命中次数、待审批数量与高频问题。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close(db)

		store := qa.NewStore(db)
		stats, err := store.Stats()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qaCmd)
	qaCmd.AddCommand(qaListCmd)
	qaCmd.AddCommand(qaStatsCmd)

	qaListCmd.Flags().StringVarP(&qaOutputType, "output", "o", "table", "输出格式 (table/json)")
	qaListCmd.Flags().IntVar(&qaPageSize, "page-size", 20, "每页数量")
	qaListCmd.Flags().IntVar(&qaPageNum, "page-num", 1, "页码")
	qaListCmd.Flags().StringVar(&qaCategory, "category", "", "按分类过滤")
	qaListCmd.Flags().StringVar(&qaSearch, "search", "", "按关键字过滤问题或答案")
}
