package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/extruline/report-bot/internal/domain/flow"
	"github.com/extruline/report-bot/internal/infrastructure/dedup"
	"github.com/extruline/report-bot/internal/infrastructure/metrics"
	"github.com/extruline/report-bot/internal/infrastructure/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler receives Telegram webhook updates. The bot token is
// embedded in the path (Telegram's recommended scheme), optionally
// doubled by the secret header. Anything past authentication is
// acknowledged with 200; Telegram retries non-2xx deliveries forever
// and a malformed update will never get better.
type WebhookHandler struct {
	engine *flow.Engine
	dedup  *dedup.Cache
	token  string
	secret string
	log    zerolog.Logger
}

// NewWebhookHandler wires dependencies for the webhook route.
func NewWebhookHandler(engine *flow.Engine, dedup *dedup.Cache, token, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine: engine,
		dedup:  dedup,
		token:  token,
		secret: secret,
		log:    log.With().Str("component", "webhook").Logger(),
	}
}

// Handle processes one webhook delivery.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(h.token)) != 1 {
		c.JSON(http.StatusNotFound, gin.H{"ok": false})
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(secretHeader)), []byte(h.secret)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"ok": false})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		metrics.UpdatesTotal.WithLabelValues("malformed").Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if h.dedup.Seen(update.UpdateID) {
		metrics.UpdatesTotal.WithLabelValues("duplicate").Inc()
		h.log.Debug().Int("update_id", update.UpdateID).Msg("duplicate update dropped")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	h.engine.HandleMessage(c.Request.Context(), flow.InboundMessage{
		UpdateID:   update.UpdateID,
		OperatorID: msg.From.ID,
		ChatID:     msg.Chat.ID,
		Operator:   operatorRepr(msg.From),
		Text:       msg.Text,
	})

	metrics.UpdatesTotal.WithLabelValues("processed").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// operatorRepr is the identity string stamped onto records, the same
// form the operators already know from the legacy log.
func operatorRepr(u *telegram.User) string {
	username := u.Username
	if username == "" {
		username = "без_username"
	}
	return fmt.Sprintf("%d (@%s)", u.ID, username)
}
