package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/extruline/report-bot/internal/interfaces/httpserver/handlers"
)

// Provider encapsulates route registration.
type Provider struct {
	handlers *handlers.Provider
}

// NewProvider builds the route registrar.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{handlers: handlerProvider}
}

// Register attaches the webhook route. The token path parameter is
// checked inside the handler.
func (p *Provider) Register(engine *gin.Engine) {
	engine.POST("/webhook/:token", p.handlers.Webhook.Handle)
}
