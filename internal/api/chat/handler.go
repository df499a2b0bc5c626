package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/api/respond"
	"github.com/liliang-cn/gmassist/internal/domain"
)

// Service runs chat turns
type Service interface {
	Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)
	ChatStream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamEvent, error)
}

// Handler handles chat requests
type Handler struct {
	chatService Service
	logger      *zap.Logger
}

// NewHandler creates a new chat handler
func NewHandler(chatService Service, logger *zap.Logger) *Handler {
	return &Handler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/chat", h.Chat)
}

// Chat handles POST /chat. With stream set the reply is sent as SSE.
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Stream {
		h.chatStream(c, &req)
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) chatStream(c *gin.Context, req *domain.ChatRequest) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.chatService.ChatStream(ctx, req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for ev := range events {
		if err := writeEvent(c.Writer, ev); err != nil {
			h.logger.Info("client gone, aborting stream", zap.Error(err))
			cancel()
			for range events {
			}
			return
		}
		if ev.IsTerminal() {
			// nothing is written after done; the deferred cancel stops the producer
			return
		}
	}
}

// writeEvent writes one SSE frame and flushes it
func writeEvent(w gin.ResponseWriter, ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
