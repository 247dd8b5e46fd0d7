//go:build js && wasm

// Command webchat 浏览器端客户端。使用 GOOS=js GOARCH=wasm 构建，由 web/index.html 加载。
package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/webchat/internal/dom/jsdom"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/backend"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/controller"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/eventloop"
	"github.com/zhouzirui/z-tavern/webchat/internal/logging"
)

func main() {
	logger := logging.NewConsole()
	defer logger.Sync()

	ctx := context.Background()

	client, err := backend.New(jsdom.Origin())
	if err != nil {
		logger.Fatal("failed to create backend client", zap.Error(err))
	}

	loop := eventloop.New(64)
	ctrl, release, err := controller.Mount(ctx, jsdom.Global(), controller.DefaultHostElements, client, loop,
		controller.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to mount chat client", zap.Error(err))
	}
	defer release()

	logger.Debug("chat client mounted", zap.String("endpoint", client.Endpoint()))

	// 页面与标签页同生命周期，只有循环被关闭时 Run 才会返回。
	if err := loop.Run(ctx); err != nil {
		logger.Error("ui loop stopped", zap.Error(err))
	}
	ctrl.Wait()
}
