package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"describe-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

const (
	defaultReconcileSpec = "0 30 3 * * *"
	defaultCleanupSpec   = "0 0 4 * * *"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	// 初始化配置
	c := config.New(
		config.WithSource(
			env.NewSource("DESCRIBE_"),
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化日志 (使用 go-pkg/logger)
	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/describe-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}

	loggerInstance := logger.NewLogger(logConfig)

	// 添加基本字段
	loggerInstance = log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "describe-cron",
	)

	logHelper := log.NewHelper(loggerInstance)

	// 初始化应用
	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	reconcileSpec, cleanupSpec := defaultReconcileSpec, defaultCleanupSpec
	if bc.Cron != nil {
		if bc.Cron.ReconcileSpec != "" {
			reconcileSpec = bc.Cron.ReconcileSpec
		}
		if bc.Cron.CleanupSpec != "" {
			cleanupSpec = bc.Cron.CleanupSpec
		}
	}

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 额度对账：余额与流水合计不一致时告警
	_, err = cronScheduler.AddFunc(reconcileSpec, func() {
		logHelper.Info("[CRON] Starting ledger reconcile...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := app.maintenance.ReconcileLedger(ctx); err != nil {
			logHelper.Errorf("[CRON] Error reconciling ledger: %v", err)
			return
		}
		logHelper.Info("[CRON] Finished ledger reconcile")
	})
	if err != nil {
		logHelper.Errorf("Failed to add ledger reconcile job: %v", err)
	}

	// 清理过期的批处理结果文件
	_, err = cronScheduler.AddFunc(cleanupSpec, func() {
		logHelper.Info("[CRON] Starting batch file cleanup...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := app.maintenance.CleanupArtifacts(ctx); err != nil {
			logHelper.Errorf("[CRON] Error cleaning up batch files: %v", err)
			return
		}
		logHelper.Info("[CRON] Finished batch file cleanup")
	})
	if err != nil {
		logHelper.Errorf("Failed to add batch file cleanup job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Info("Scheduled jobs:")
	logHelper.Infof("  - Ledger reconcile: %s", reconcileSpec)
	logHelper.Infof("  - Batch file cleanup: %s", cleanupSpec)
	logHelper.Info("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
}
