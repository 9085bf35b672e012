package chat

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/Ronak501/Research-Agent/backend/internal/model/chat"
	chatService "github.com/Ronak501/Research-Agent/backend/internal/service/chat"
	"github.com/Ronak501/Research-Agent/backend/pkg/utils"
)

// Handler serves the conversation and message endpoints.
type Handler struct {
	chatSvc *chatService.Service
	logger  *log.Logger
}

// New creates a chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  log.Default().WithPrefix("http"),
	}
}

// RegisterRoutes mounts the chat routes under /chat.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/conversations", h.handleCreateConversation)
		r.Get("/conversations", h.handleListConversations)
		r.Get("/conversations/{conversationID}", h.handleListMessages)
		r.Delete("/conversations/{conversationID}", h.handleDeleteConversation)
		r.Post("/message", h.handleSendMessage)
	})
}

// handleCreateConversation accepts an empty body.
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversation, err := h.chatSvc.CreateConversation(r.Context(), payload.Title)
	if err != nil {
		h.internalError(w, "create conversation", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, conversation)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.chatSvc.ListConversations(r.Context())
	if err != nil {
		h.internalError(w, "list conversations", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, conversations)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.chatSvc.ListMessages(r.Context(), conversationID)
	if err != nil {
		h.internalError(w, "list messages", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.chatSvc.DeleteConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.internalError(w, "delete conversation", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted"})
}

// handleSendMessage stores the user message and returns it with the generated reply.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID string `json:"conversation_id"`
		Content        string `json:"content"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userMessage, aiMessage, err := h.chatSvc.SendMessage(r.Context(), payload.ConversationID, payload.Content)
	if err != nil {
		if errors.Is(err, chatService.ErrInvalidInput) {
			utils.RespondError(w, http.StatusUnprocessableEntity, "conversation_id and content are required")
			return
		}
		h.internalError(w, "send message", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]chat.Message{
		"user_message": userMessage,
		"ai_message":   aiMessage,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "err", err)
	utils.RespondError(w, http.StatusInternalServerError, "internal server error")
}
