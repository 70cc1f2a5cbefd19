package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chronicle/internal/repository"
	"chronicle/internal/service"
)

const defaultMaxBodyBytes = 1 << 20

type WebhookHandler struct {
	Service      *service.WebhookService
	Limiter      *IPRateLimiter
	MaxBodyBytes int64
	Logger       *zap.Logger
}

type webhookAck struct {
	Success  bool     `json:"success"`
	EventID  string   `json:"eventId,omitempty"`
	EventIDs []string `json:"eventIds,omitempty"`
	Message  string   `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	g := r.Group("/webhooks")
	g.GET("/:source", h.describe)
	g.POST("/:source", h.Limiter.Middleware(), h.receive)
}

// @Summary Receive a webhook delivery
// @Tags webhooks
// @Accept json
// @Produce json
// @Param source path string true "github|gitlab|ansible|prometheus|watchtower"
// @Success 200 {object} webhookAck
// @Failure 401 {object} webhookAck
// @Failure 429 {object} webhookAck
// @Failure 500 {object} webhookAck
// @Router /webhooks/{source} [post]
func (h *WebhookHandler) receive(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusInternalServerError, webhookAck{Error: "webhook service unavailable"})
		return
	}
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, webhookAck{Error: "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, webhookAck{Error: "Failed to read body"})
		return
	}

	source := c.Param("source")
	res, err := h.Service.Handle(c.Request.Context(), service.WebhookDelivery{
		Source: source,
		Header: c.Request.Header,
		Body:   body,
		IP:     c.ClientIP(),
	})
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, webhookAck{Error: "Invalid signature"})
		return
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, webhookAck{Error: "Unknown webhook source"})
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.Error("webhook processing failed", zap.String("source", source), zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, webhookAck{Error: "Failed to process webhook"})
		return
	}

	ack := webhookAck{Success: true, Message: res.Message}
	switch len(res.EventIDs) {
	case 0:
	case 1:
		ack.EventID = res.EventIDs[0]
	default:
		ack.EventIDs = res.EventIDs
	}
	if ack.Message == "" {
		ack.Message = "Event created"
	}
	c.JSON(http.StatusOK, ack)
}

// @Summary Webhook endpoint status
// @Tags webhooks
// @Param source path string true "webhook source"
// @Success 200 {object} map[string]any
// @Router /webhooks/{source} [get]
func (h *WebhookHandler) describe(c *gin.Context) {
	adapter, ok := h.Service.Adapter(c.Param("source"))
	if !ok {
		c.JSON(http.StatusNotFound, webhookAck{Error: "Unknown webhook source"})
		return
	}
	c.JSON(http.StatusOK, adapter.Describe())
}

// WebhookLogHandler serves the audit log browser.
type WebhookLogHandler struct {
	Service *service.WebhookService
}

func (h *WebhookLogHandler) Register(r gin.IRouter) {
	r.GET("/webhooks/logs", h.list)
}

// @Summary List webhook deliveries
// @Tags webhooks
// @Param source query string false "source"
// @Param processed query bool false "processed flag"
// @Param limit query int false "limit" default(50)
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/webhooks/logs [get]
func (h *WebhookLogHandler) list(c *gin.Context) {
	params := repository.ListWebhookLogsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Source: stringQuery(c, "source"),
	}
	if raw := stringQuery(c, "processed"); raw != nil {
		v := boolQuery(c, "processed")
		params.Processed = &v
	}
	items, total, err := h.Service.Logs(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": total, "limit": params.Limit, "offset": params.Offset})
}
