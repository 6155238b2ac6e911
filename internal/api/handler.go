package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"semp-gateway/internal/events"
	"semp-gateway/internal/gateway"
	"semp-gateway/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	gateway   *gateway.Gateway
	store     store.Store
	webpush   *webpush.Options
	publisher events.Publisher
}

// NewHandler creates a new API handler. publisher may be nil.
func NewHandler(gw *gateway.Gateway, s store.Store, webpushOptions *webpush.Options, publisher events.Publisher) *Handler {
	return &Handler{
		gateway:   gw,
		store:     s,
		webpush:   webpushOptions,
		publisher: publisher,
	}
}

func (h *Handler) publish(c *gin.Context, eventType, deviceID string) {
	if h.publisher == nil {
		return
	}
	// Fanout logs delivery failures itself.
	_ = h.publisher.Publish(c.Request.Context(), events.New(eventType, deviceID))
}
