package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"muhurta/internal/app"
	mhcfg "muhurta/internal/config"
	"muhurta/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv(mhcfg.EnvConfigPath)
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := mhcfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	closeLog, err := logger.SetFileOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	defer closeLog()

	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，配置=%s）", cfg.App.Env, cfgPath)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
	logger.Infof("服务已退出")
}
