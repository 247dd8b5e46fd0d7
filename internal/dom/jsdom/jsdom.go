//go:build js && wasm

// Package jsdom 通过 syscall/js 把 dom.Document 绑定到浏览器文档。
package jsdom

import (
	"syscall/js"

	"github.com/zhouzirui/z-tavern/webchat/internal/dom"
)

// Document 包装浏览器的 document 对象。
type Document struct {
	v js.Value
}

var _ dom.Document = (*Document)(nil)

// Global 返回当前页面的 document。
func Global() *Document {
	return &Document{v: js.Global().Get("document")}
}

// Origin 返回 window.location.origin，作为同源请求的基础地址。
func Origin() string {
	return js.Global().Get("location").Get("origin").String()
}

// ElementByID 实现 dom.Document。
func (d *Document) ElementByID(id string) (dom.Element, bool) {
	v := d.v.Call("getElementById", id)
	if v.IsNull() || v.IsUndefined() {
		return nil, false
	}
	return &Element{v: v}, true
}

// CreateElement 实现 dom.Document。
func (d *Document) CreateElement(tag string) dom.Element {
	return &Element{v: d.v.Call("createElement", tag)}
}

// Element 包装浏览器元素。
type Element struct {
	v js.Value
}

var _ dom.Element = (*Element)(nil)

func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok {
		return
	}
	e.v.Call("appendChild", c.v)
}

func (e *Element) RemoveChildren() {
	e.v.Call("replaceChildren")
}

func (e *Element) Children() []dom.Element {
	coll := e.v.Get("children")
	n := coll.Length()
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Element{v: coll.Index(i)})
	}
	return out
}

func (e *Element) ChildCount() int {
	return e.v.Get("childElementCount").Int()
}

// SetTextContent 写入 textContent，浏览器会将其存为单个文本节点。
func (e *Element) SetTextContent(text string) {
	e.v.Set("textContent", text)
}

func (e *Element) TextContent() string {
	return e.v.Get("textContent").String()
}

func (e *Element) SetClass(name string) {
	e.v.Set("className", name)
}

func (e *Element) Value() string {
	return e.v.Get("value").String()
}

func (e *Element) SetValue(value string) {
	e.v.Set("value", value)
}

func (e *Element) ScrollTop() int {
	return e.v.Get("scrollTop").Int()
}

func (e *Element) SetScrollTop(top int) {
	e.v.Set("scrollTop", top)
}

func (e *Element) ScrollHeight() int {
	return e.v.Get("scrollHeight").Int()
}

// OnClick 安装点击监听。回调运行在浏览器事件循环上，不能阻塞。
func (e *Element) OnClick(fn func()) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		return nil
	})
	e.v.Call("addEventListener", "click", cb)
	return func() {
		e.v.Call("removeEventListener", "click", cb)
		cb.Release()
	}
}
