package controllers

import (
	"context"
	"net/http"

	"github.com/ethan-ignatius/gymbuddy/services"

	"github.com/gin-gonic/gin"
)

// ConversationHandler produces exactly one reply per inbound text.
type ConversationHandler interface {
	HandleInbound(ctx context.Context, phone, body string) string
}

type WebhookController struct {
	Conv ConversationHandler
	SMS  services.MessageSender
}

func NewWebhookController(conv ConversationHandler, sms services.MessageSender) *WebhookController {
	return &WebhookController{Conv: conv, SMS: sms}
}

// inboundSMS covers both gateway shapes: JSON bodies use from/body, the
// form-encoded fallback uses the Twilio-style From/Body field names.
type inboundSMS struct {
	From string `json:"from" form:"From"`
	Body string `json:"body" form:"Body"`
}

// POST /webhooks/sms
func (w *WebhookController) InboundSMS(c *gin.Context) {
	var req inboundSMS
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.From == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sender"})
		return
	}

	reply := w.Conv.HandleInbound(c.Request.Context(), req.From, req.Body)

	if err := w.SMS.SendText(c.Request.Context(), req.From, reply); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send reply", "reply": reply})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
