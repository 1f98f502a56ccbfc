package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpServer "SurfSense/api/http"
	"SurfSense/internal/config"
	"SurfSense/internal/initial"
	indexingMCP "SurfSense/internal/modules/indexing/infrastructure/mcp"
	indexingHandler "SurfSense/internal/modules/indexing/interface/http"
	"SurfSense/pkg/zlog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the index queue worker and the MCP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	conf := config.GetConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 组装依赖
	app, err := initial.NewApp(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	var wg sync.WaitGroup

	// 2. HTTP 服务
	engine := httpServer.NewEngine(conf, indexingHandler.NewDocumentHandler(app.IndexingSvc, app.SearchSvc))
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	srv := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	wg.Add(1)
	go func() {
		defer wg.Done()
		zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("服务器启动失败", zap.Error(err))
			stop()
		}
	}()

	// 3. 索引队列消费
	consumer, err := app.NewIndexConsumer()
	if err != nil {
		// HTTP 已在服务，先停掉再让 defer 关闭数据库
		abortServe(stop, &wg, srv)
		return err
	}
	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			zlog.Info("index worker started", zap.String("topic", conf.KafkaConfig.IndexTopic), zap.String("group", conf.KafkaConfig.ConsumerGroupID))
			if err := consumer.Run(ctx, app.Worker); err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("index worker stopped", zap.Error(err))
			}
		}()
	}

	// 4. 知识库 MCP Server（SSE），与 HTTP 接口共用 JWT 校验
	var mcpHTTP *http.Server
	if conf.MCPConfig.Enabled && conf.MCPConfig.Addr != "" {
		mcpSrv := indexingMCP.NewKnowledgeServer(indexingMCP.KnowledgeServerConfig{
			Name:    conf.MCPConfig.Name,
			Version: conf.MCPConfig.Version,
		}, app.SearchSvc, app.IndexingSvc)
		mcpHTTP = &http.Server{
			Addr:              conf.MCPConfig.Addr,
			Handler:           httpServer.NewMCPEngine(conf, server.NewSSEServer(mcpSrv)),
			ReadHeaderTimeout: 10 * time.Second,
			// SSE 长连接随进程信号结束
			BaseContext: func(net.Listener) context.Context { return ctx },
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			zlog.Info("mcp sse server started", zap.String("addr", conf.MCPConfig.Addr))
			if err := mcpHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Error("mcp sse server stopped", zap.Error(err))
			}
		}()
	}

	// 5. 优雅关闭
	<-ctx.Done()
	zlog.Info("正在关闭服务器...")
	shutdownHTTP(srv)
	if mcpHTTP != nil {
		shutdownHTTP(mcpHTTP)
	}
	if consumer != nil {
		_ = consumer.Close()
	}
	wg.Wait()
	zlog.Info("服务器已关闭")
	return nil
}

func shutdownHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Warn("http shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
	}
}

// abortServe 启动中途失败：取消 ctx、关闭已启动的 server，并等待后台 goroutine 退出
func abortServe(stop context.CancelFunc, wg *sync.WaitGroup, servers ...*http.Server) {
	stop()
	for _, srv := range servers {
		shutdownHTTP(srv)
	}
	wg.Wait()
}
