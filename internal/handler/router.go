package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/webchat/internal/handler/chat"
	middlewarePkg "github.com/zhouzirui/z-tavern/webchat/internal/middleware"
	chatService "github.com/zhouzirui/z-tavern/webchat/internal/service/chat"
	"github.com/zhouzirui/z-tavern/webchat/pkg/utils"
	"github.com/zhouzirui/z-tavern/webchat/web"
)

// NewRouter wires HTTP routes to core services. dist holds the compiled
// client (main.wasm and wasm_exec.js).
func NewRouter(chatSvc *chatService.Service, dist fs.FS, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(chatSvc, logger)
	chatHandler.RegisterRoutes(r)

	index := web.IndexHTML()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	})

	r.Get("/static/style.css", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, web.Assets, "style.css")
	})

	if dist != nil {
		r.Handle("/dist/*", http.StripPrefix("/dist/", http.FileServerFS(dist)))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondText(w, http.StatusOK, "ok")
	})

	return r
}
