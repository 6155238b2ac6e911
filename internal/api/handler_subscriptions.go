package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semp-gateway/internal/model"
	"semp-gateway/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint          string   `json:"endpoint" binding:"required"`
	P256DH            string   `json:"p256dh" binding:"required"`
	Auth              string   `json:"auth" binding:"required"`
	SubscribedDevices []string `json:"subscribedDevices"`
}

// SubscriptionResponse lists the devices a push subscription receives events for.
type SubscriptionResponse struct {
	Endpoint          string   `json:"endpoint"`
	SubscribedDevices []string `json:"subscribedDevices"`
}

// PutSubscription handles the creation or replacement of a subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.PutSubscription(c.Request.Context(), subscription, req.SubscribedDevices); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondStatus(c, http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondStatus(c, http.StatusOK)
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		respondError(c, http.StatusBadRequest, "endpoint is required")
		return
	}

	subscription, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if errors.Is(err, store.ErrSubscriptionNotFound) {
		respondStatus(c, http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	deviceIDs := make([]string, len(subscription.Devices))
	for i, d := range subscription.Devices {
		deviceIDs[i] = d.DeviceID
	}

	respond(c, http.StatusOK, SubscriptionResponse{
		Endpoint:          subscription.Endpoint,
		SubscribedDevices: deviceIDs,
	})
}
