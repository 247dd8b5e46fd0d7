// Package dom 描述聊天客户端需要的宿主文档最小接口。浏览器与进程内实现位于子包中。
package dom

// Document 查找与创建元素。
type Document interface {
	ElementByID(id string) (Element, bool)
	CreateElement(tag string) Element
}

// Element 宿主文档中的单个节点。
//
// 文本只能经由 SetTextContent 写入，生成的是文本节点，标记字符不会产生新结构。
type Element interface {
	AppendChild(child Element)
	RemoveChildren()
	Children() []Element
	ChildCount() int

	SetTextContent(text string)
	TextContent() string
	SetClass(name string)

	Value() string
	SetValue(value string)

	ScrollTop() int
	SetScrollTop(top int)
	ScrollHeight() int

	// OnClick 注册点击回调，返回用于注销的函数。
	OnClick(fn func()) (release func())
}
