// Package web 存放聊天客户端挂载的宿主页面。
package web

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/zhouzirui/z-tavern/webchat/internal/dom/htmldom"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/controller"
)

//go:embed index.html style.css
var Assets embed.FS

// IndexHTML 返回宿主页面。
func IndexHTML() []byte {
	data, err := Assets.ReadFile("index.html")
	if err != nil {
		panic(fmt.Sprintf("embedded index.html missing: %v", err))
	}
	return data
}

// Validate 检查页面包含客户端需要绑定的所有元素。
func Validate(page []byte, ids controller.HostElements) error {
	doc, err := htmldom.Parse(bytes.NewReader(page))
	if err != nil {
		return fmt.Errorf("parse host page: %w", err)
	}

	for _, id := range []string{ids.Input, ids.Send, ids.Clear, ids.History} {
		if _, ok := doc.ElementByID(id); !ok {
			return fmt.Errorf("%w: #%s", controller.ErrElementMissing, id)
		}
	}
	return nil
}
