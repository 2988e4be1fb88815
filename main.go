package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stablewallet/internal/config"
	"stablewallet/internal/handler"
	"stablewallet/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/stablewallet.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(c)
	handler.RegisterHandlers(server, ctx)

	// 启动时恢复上次进程遗留的 pending 交易监控
	go func() {
		if err := ctx.Monitor.ResumePending(context.Background()); err != nil {
			fmt.Printf("恢复交易监控失败: %v\n", err)
		}
	}()

	// 设置优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)
	fmt.Println("🔐 钱包核心服务已启动")
	fmt.Println("🔗 交易监控器已就绪")

	// 在独立的goroutine中启动服务器
	go func() {
		server.Start()
	}()

	// 等待退出信号
	<-quit
	fmt.Println("\n🛑 收到退出信号，正在优雅关闭服务...")

	// 停止监控服务
	ctx.StopMonitor()

	fmt.Println("✅ 服务已安全退出")
}
