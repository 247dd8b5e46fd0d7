// Package controller 把页面上的发送、清空操作接到对话记录和聊天后端。
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/webchat/internal/dom"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/transcript"
)

// ErrElementMissing 页面缺少必需元素时由 Mount 返回。
var ErrElementMissing = errors.New("host element missing")

const serialQueueSize = 64

// Sender 发送一条消息并返回回复文本。
type Sender interface {
	Send(ctx context.Context, text string) (string, error)
}

// Poster 把 fn 投递到 UI 循环；循环已停止时返回 false。
type Poster interface {
	Post(fn func()) bool
}

// HostElements 客户端绑定的页面元素 id。
type HostElements struct {
	Input   string
	Send    string
	Clear   string
	History string
}

// DefaultHostElements 与 web/index.html 保持一致。
var DefaultHostElements = HostElements{
	Input:   "user-input",
	Send:    "send-btn",
	Clear:   "clear-btn",
	History: "chat-history",
}

// Option 定制 Controller。
type Option func(*Controller)

// WithLogger 设置诊断日志。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSerialReplies 让请求逐条发出，回复按提交顺序追加。
// 队列已满时新的发送会被丢弃并保留输入框内容。
func WithSerialReplies() Option {
	return func(c *Controller) {
		c.serial = true
	}
}

// Controller 持有输入草稿并分发请求。OnSend 与 OnClear 必须在 UI 循环上执行，
// 回复同样投递回 UI 循环。
type Controller struct {
	ctx    context.Context
	input  dom.Element
	view   *transcript.View
	sender Sender
	loop   Poster
	logger *zap.Logger

	serial   bool
	queue    chan string
	inflight sync.WaitGroup
}

// New 用已解析好的部件创建控制器。ctx 约束每一个请求。
func New(ctx context.Context, input dom.Element, view *transcript.View, sender Sender, loop Poster, opts ...Option) *Controller {
	c := &Controller{
		ctx:    ctx,
		input:  input,
		view:   view,
		sender: sender,
		loop:   loop,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.serial {
		c.queue = make(chan string, serialQueueSize)
		go c.drain()
	}
	return c
}

// Mount 一次性查找页面元素，创建对话视图并绑定按钮。返回的 release 用于解绑。
func Mount(ctx context.Context, doc dom.Document, ids HostElements, sender Sender, loop Poster, opts ...Option) (*Controller, func(), error) {
	lookup := func(id string) (dom.Element, error) {
		el, ok := doc.ElementByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: #%s", ErrElementMissing, id)
		}
		return el, nil
	}

	input, err := lookup(ids.Input)
	if err != nil {
		return nil, nil, err
	}
	sendBtn, err := lookup(ids.Send)
	if err != nil {
		return nil, nil, err
	}
	clearBtn, err := lookup(ids.Clear)
	if err != nil {
		return nil, nil, err
	}
	history, err := lookup(ids.History)
	if err != nil {
		return nil, nil, err
	}

	c := New(ctx, input, transcript.New(doc, history), sender, loop, opts...)
	release := c.Bind(sendBtn, clearBtn)
	return c, release, nil
}

// Bind 把两个按钮的点击投递到 UI 循环。
func (c *Controller) Bind(sendBtn, clearBtn dom.Element) func() {
	releaseSend := sendBtn.OnClick(func() { c.loop.Post(c.OnSend) })
	releaseClear := clearBtn.OnClick(func() { c.loop.Post(c.OnClear) })
	return func() {
		releaseSend()
		releaseClear()
	}
}

// View 返回对话视图。
func (c *Controller) View() *transcript.View {
	return c.view
}

// OnSend 提交当前草稿，纯空白内容直接忽略。
func (c *Controller) OnSend() {
	text := c.input.Value()
	if strings.TrimSpace(text) == "" {
		return
	}

	c.inflight.Add(1)
	if c.serial {
		select {
		case c.queue <- text:
		default:
			c.inflight.Done()
			c.logger.Warn("send queue full, keeping draft", zap.Int("queued", len(c.queue)))
			return
		}
	} else {
		go c.exchange(text)
	}

	c.view.AppendUser(text)
	c.input.SetValue("")
}

// OnClear 清空对话记录。进行中的请求不会被取消，其回复仍会追加。
func (c *Controller) OnClear() {
	c.view.Clear()
}

// Wait 阻塞直到所有已分发的请求结束且结果已应用。不要在 UI 循环上调用。
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// drain 在控制器的整个生命周期内运行。ctx 取消后 Send 立即失败，
// 每条排队的消息仍会走完 exchange。
func (c *Controller) drain() {
	for text := range c.queue {
		c.exchange(text)
	}
}

func (c *Controller) exchange(text string) {
	reply, err := c.sender.Send(c.ctx, text)
	if err != nil {
		c.logger.Error("chat request failed",
			zap.Error(err),
			zap.Int("inputLength", len(text)))
		c.inflight.Done()
		return
	}

	if !c.loop.Post(func() {
		defer c.inflight.Done()
		c.view.AppendBot(reply)
	}) {
		c.logger.Warn("ui loop stopped, dropping reply", zap.Int("replyLength", len(reply)))
		c.inflight.Done()
	}
}
