package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Ronak501/Research-Agent/backend/internal/handler/chat"
	middlewarePkg "github.com/Ronak501/Research-Agent/backend/internal/middleware"
	chatService "github.com/Ronak501/Research-Agent/backend/internal/service/chat"
	"github.com/Ronak501/Research-Agent/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(allowedOrigins []string, chatSvc *chatService.Service, logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(chatSvc)

	r.Route("/api", func(api chi.Router) {
		api.Get("/", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Research Agent API"})
		})

		chatHandler.RegisterRoutes(api)
	})

	return r
}
