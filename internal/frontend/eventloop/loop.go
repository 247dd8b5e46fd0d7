// Package eventloop 像浏览器事件循环一样在单个 goroutine 上执行 UI 任务。
// 所有访问宿主文档的操作都投递到这里，阻塞操作在别处执行后再把结果投递回来。
package eventloop

import (
	"context"
	"sync"
)

// Loop 由 Run 消费的先进先出任务队列。
type Loop struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

// New 创建任务循环，队列满 size 个待执行任务后 Post 会阻塞。
func New(size int) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		tasks: make(chan func(), size),
		quit:  make(chan struct{}),
	}
}

// Post 投递 fn。循环停止后返回 false，fn 不会执行。
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do 投递 fn 并等待其执行完毕。在任务内部调用会死锁。
func (l *Loop) Do(fn func()) bool {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}

	select {
	case <-done:
		return true
	case <-l.quit:
		return false
	}
}

// Run 持续执行任务，直到 ctx 取消或调用 Close。
func (l *Loop) Run(ctx context.Context) error {
	defer l.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Close 停止循环，尚未开始的任务会被丢弃。
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
}

// Done 在循环停止时关闭。
func (l *Loop) Done() <-chan struct{} {
	return l.quit
}
