// Package transcript 渲染可见的对话记录。
package transcript

import (
	"github.com/zhouzirui/z-tavern/webchat/internal/dom"
	"github.com/zhouzirui/z-tavern/webchat/internal/model/chat"
)

// EntryTag 每条记录使用的元素标签
const EntryTag = "div"

// View 管理容器元素内的记录。追加操作不会失败，并按调用顺序落地。
type View struct {
	doc       dom.Document
	container dom.Element
}

// New 把视图绑定到已有容器。
func New(doc dom.Document, container dom.Element) *View {
	return &View{doc: doc, container: container}
}

// AppendUser 追加一条 "You:" 记录，不滚动。
func (v *View) AppendUser(text string) {
	v.append(chat.Message{Role: chat.RoleUser, Text: text})
}

// AppendBot 追加一条 "Bot:" 记录并滚动到底部。
func (v *View) AppendBot(text string) {
	v.append(chat.Message{Role: chat.RoleBot, Text: text})
	v.container.SetScrollTop(v.container.ScrollHeight())
}

// Clear 移除所有记录。
func (v *View) Clear() {
	v.container.RemoveChildren()
}

// Len 返回记录条数。
func (v *View) Len() int {
	return v.container.ChildCount()
}

// Entries 按顺序返回每条记录的显示文本。
func (v *View) Entries() []string {
	children := v.container.Children()
	out := make([]string, 0, len(children))
	for _, c := range children {
		out = append(out, c.TextContent())
	}
	return out
}

func (v *View) append(msg chat.Message) {
	entry := v.doc.CreateElement(EntryTag)
	entry.SetClass(msg.Role.Class())
	entry.SetTextContent(msg.Display())
	v.container.AppendChild(entry)
}
