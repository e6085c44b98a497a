package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/chat"
	"github.com/semanticallynull/smartcommutex-backend/internal/middleware"
)

type messageResponse struct {
	ID        uuid.UUID    `json:"id"`
	ChatID    uuid.UUID    `json:"chatId"`
	SenderID  string       `json:"senderId"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	Sender    *chat.Member `json:"sender,omitempty"`
}

func toMessageResponse(m chat.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

type chatResponse struct {
	ID          uuid.UUID        `json:"id"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Users       []chat.Member    `json:"users,omitempty"`
	LastMessage *messageResponse `json:"lastMessage"`
}

// chatError writes the response for a chat repository error. It reports
// false when err is nil.
func chatError(c *gin.Context, err error, failure string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, chat.ErrUnauthenticated), errors.Is(err, chat.ErrNotParticipant):
		unauthorized(c)
	case errors.Is(err, chat.ErrMissingFields):
		c.JSON(http.StatusBadRequest, errorBody("MISSING_FIELDS", "Missing required fields"))
	case errors.Is(err, chat.ErrSelfChat):
		c.JSON(http.StatusBadRequest, errorBody("SELF_CHAT", "Cannot start a chat with yourself"))
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("CHAT_NOT_FOUND", "Chat not found"))
	case errors.Is(err, chat.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errorBody("USER_NOT_FOUND", "User not found"))
	default:
		middleware.GetLogger(c).ErrorContext(c.Request.Context(), failure, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Internal error"))
	}
	return true
}

func (a *API) getChatsHandler(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	chats, err := a.chr.ListForUser(c.Request.Context(), userID)
	if chatError(c, err, "failed to list chats") {
		return
	}

	resp := make([]chatResponse, 0, len(chats))
	for _, ch := range chats {
		cr := chatResponse{
			ID:        ch.ID,
			CreatedAt: ch.CreatedAt,
			UpdatedAt: ch.UpdatedAt,
			Users:     ch.Users,
		}
		if cr.Users == nil {
			cr.Users = []chat.Member{}
		}
		if ch.LastMessage != nil {
			m := toMessageResponse(*ch.LastMessage)
			cr.LastMessage = &m
		}
		resp = append(resp, cr)
	}

	c.JSON(http.StatusOK, resp)
}

type createChatRequest struct {
	UserID string `json:"userId"`
}

func (a *API) createChatHandler(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request body"))
		return
	}

	ch, _, err := a.chr.FindOrCreate(c.Request.Context(), userID, req.UserID)
	if chatError(c, err, "failed to create chat") {
		return
	}

	c.JSON(http.StatusOK, chatResponse{ID: ch.ID, CreatedAt: ch.CreatedAt, UpdatedAt: ch.UpdatedAt})
}

func (a *API) getMessagesHandler(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	messages, err := a.chr.Messages(c.Request.Context(), userID, c.Query("chatId"))
	if chatError(c, err, "failed to list messages") {
		return
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		mr := toMessageResponse(m.Message)
		mr.Sender = &chat.Member{ID: m.SenderID}
		if m.SenderName.Valid {
			mr.Sender.Name = &m.SenderName.String
		}
		if m.SenderImage.Valid {
			mr.Sender.Image = &m.SenderImage.String
		}
		resp = append(resp, mr)
	}

	c.JSON(http.StatusOK, resp)
}

type createMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

func (a *API) createMessageHandler(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request body"))
		return
	}

	m, err := a.chr.PostMessage(c.Request.Context(), userID, req.ChatID, req.Content)
	if chatError(c, err, "failed to create message") {
		return
	}

	c.JSON(http.StatusOK, toMessageResponse(m))
}
