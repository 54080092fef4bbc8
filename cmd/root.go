package cmd

import (
	"os"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"

	"github.com/eryajf/qabot/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "qabot",
	Short: "智能问答网关",
	Long:  `智能问答网关，按精确缓存、语义相似度、大模型生成三级兜底回答问题，并提供带版本历史的知识库管理接口。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		return err
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("Command failed: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认查找 ./configs/config.yaml)")
}
