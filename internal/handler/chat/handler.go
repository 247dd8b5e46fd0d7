package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/z-tavern/webchat/internal/service/chat"
	"github.com/zhouzirui/z-tavern/webchat/pkg/utils"
)

// FieldUserInput 表单中承载用户输入的字段名
const FieldUserInput = "user_input"

// maxFormBytes 限制单条消息请求体的大小
const maxFormBytes = 64 << 10

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/history", h.handleHistory)
	r.Delete("/chat/history", h.handleResetHistory)
}

// handleChat 读取表单字段 user_input，以纯文本返回回复
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	if !r.PostForm.Has(FieldUserInput) {
		utils.RespondError(w, http.StatusBadRequest, FieldUserInput+" is required")
		return
	}
	input := r.PostForm.Get(FieldUserInput)

	reply, err := h.chatSvc.Reply(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to generate reply",
			zap.Error(err),
			zap.Int("inputLength", len(input)))
		utils.RespondError(w, http.StatusBadGateway, "failed to generate reply")
		return
	}

	utils.RespondText(w, http.StatusOK, reply.Text)
}

// handleHistory 返回当前保留在内存中的对话
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.History(r.Context()))
}

// handleResetHistory 清空内存中的对话
func (h *Handler) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	h.chatSvc.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
