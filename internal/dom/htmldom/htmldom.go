// Package htmldom 基于 golang.org/x/net/html 节点树实现 dom.Document。
// 客户端在进程内运行时用它替代浏览器，服务端也用它校验宿主页面的元素。
//
// Document 不是并发安全的，只能在单个 goroutine 中使用。
package htmldom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/zhouzirui/z-tavern/webchat/internal/dom"
)

// RowHeight 模拟的单个子元素像素高度，滚动高度 = 子元素数 × RowHeight。
const RowHeight = 20

// Document 内存中的宿主文档。
type Document struct {
	root  *html.Node
	elems map[*html.Node]*Element
}

var _ dom.Document = (*Document)(nil)

// Parse 从页面标记构建 Document。
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, elems: make(map[*html.Node]*Element)}, nil
}

// ParseString 解析字符串形式的页面。
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Element 按 id 返回元素，不存在时返回 nil。
func (d *Document) Element(id string) *Element {
	n := findByID(d.root, id)
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// ElementByID 实现 dom.Document。
func (d *Document) ElementByID(id string) (dom.Element, bool) {
	el := d.Element(id)
	if el == nil {
		return nil, false
	}
	return el, true
}

// CreateElement 实现 dom.Document，新元素在被追加前处于游离状态。
func (d *Document) CreateElement(tag string) dom.Element {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.wrap(n)
}

// Render 以标记形式输出文档。
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String 渲染文档，失败时返回空串。
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) wrap(n *html.Node) *Element {
	if el, ok := d.elems[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elems[n] = el
	return el
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Element 包装一个元素节点。
type Element struct {
	doc       *Document
	node      *html.Node
	scrollTop int
	nextID    int
	handlers  []clickHandler
}

type clickHandler struct {
	id int
	fn func()
}

var _ dom.Element = (*Element)(nil)

// Node 返回底层 html 节点。
func (e *Element) Node() *html.Node {
	return e.node
}

// ID 返回 id 属性。
func (e *Element) ID() string {
	return attr(e.node, "id")
}

// Class 返回 class 属性。
func (e *Element) Class() string {
	return attr(e.node, "class")
}

// AppendChild 实现 dom.Element，忽略来自其他实现的子元素。
func (e *Element) AppendChild(child dom.Element) {
	c, ok := child.(*Element)
	if !ok {
		return
	}
	if c.node.Parent != nil {
		c.node.Parent.RemoveChild(c.node)
	}
	e.node.AppendChild(c.node)
}

// RemoveChildren 实现 dom.Element。
func (e *Element) RemoveChildren() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		delete(e.doc.elems, c)
		c = next
	}
	e.scrollTop = 0
}

// Children 实现 dom.Element，只返回元素节点。
func (e *Element) Children() []dom.Element {
	var out []dom.Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// ChildCount 实现 dom.Element。
func (e *Element) ChildCount() int {
	count := 0
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

// SetTextContent 用单个文本节点替换全部子节点。
func (e *Element) SetTextContent(text string) {
	e.RemoveChildren()
	if text == "" {
		return
	}
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// TextContent 拼接所有后代文本节点。
func (e *Element) TextContent() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return b.String()
}

// SetClass 实现 dom.Element。
func (e *Element) SetClass(name string) {
	setAttr(e.node, "class", name)
}

// Value 返回 value 属性，用来模拟输入控件的值。
func (e *Element) Value() string {
	return attr(e.node, "value")
}

// SetValue 实现 dom.Element。
func (e *Element) SetValue(value string) {
	setAttr(e.node, "value", value)
}

// ScrollTop 实现 dom.Element。
func (e *Element) ScrollTop() int {
	return e.scrollTop
}

// SetScrollTop 把 top 限制在 [0, ScrollHeight()] 内。
func (e *Element) SetScrollTop(top int) {
	if top < 0 {
		top = 0
	}
	if limit := e.ScrollHeight(); top > limit {
		top = limit
	}
	e.scrollTop = top
}

// ScrollHeight 实现 dom.Element。
func (e *Element) ScrollHeight() int {
	return e.ChildCount() * RowHeight
}

// OnClick 实现 dom.Element。
func (e *Element) OnClick(fn func()) func() {
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, clickHandler{id: id, fn: fn})
	return func() {
		for i, h := range e.handlers {
			if h.id == id {
				e.handlers = append(e.handlers[:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

// Click 按注册顺序触发点击回调。
func (e *Element) Click() {
	handlers := append([]clickHandler(nil), e.handlers...)
	for _, h := range handlers {
		h.fn()
	}
}
