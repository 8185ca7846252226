package handlers

// Provider groups the HTTP handlers for route registration.
type Provider struct {
	Webhook *WebhookHandler
}

// NewProvider wires the handler set.
func NewProvider(webhook *WebhookHandler) *Provider {
	return &Provider{Webhook: webhook}
}
