// Package command apphub 命令行入口
package command

import (
	"fmt"
	"os"

	"github.com/bingooyong/apphub/internal/config"
	"github.com/bingooyong/apphub/internal/logger"
	"github.com/bingooyong/apphub/pkg/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "apphub",
	Short:         "App Hub marketplace server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/apphub.yaml", "配置文件路径")
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime 子命令共享的配置、日志与数据库
type runtime struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

// bootstrap 加载配置、初始化日志并连接数据库
func bootstrap() (*runtime, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	return &runtime{cfg: cfg, log: log, db: db}, nil
}

func (r *runtime) close() {
	if err := database.Close(r.db); err != nil {
		r.log.Error("database close failed", zap.Error(err))
	}
	_ = r.log.Sync()
}
