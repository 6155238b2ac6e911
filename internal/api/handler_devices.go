package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semp-gateway/internal/events"
	"semp-gateway/internal/model"
	"semp-gateway/internal/parse"
)

type postDeviceRequest struct {
	Device *deviceInput `json:"device" binding:"required"`
}

// GetDevices handles GET /api/devices.
func (h *Handler) GetDevices(c *gin.Context) {
	respond(c, http.StatusOK, ToWireDevices(h.gateway.GetAllDevices()))
}

// GetDevice handles GET /api/devices/:id.
func (h *Handler) GetDevice(c *gin.Context) {
	device, ok := h.gateway.GetDevice(c.Param("id"))
	if !ok {
		respondStatus(c, http.StatusNotFound)
		return
	}
	respond(c, http.StatusOK, ToWireDevice(device))
}

// DeleteDevice handles DELETE /api/devices/:id.
func (h *Handler) DeleteDevice(c *gin.Context) {
	id := c.Param("id")
	if !h.gateway.DeleteDevice(id) {
		respondStatus(c, http.StatusNotFound)
		return
	}
	h.publish(c, events.DeviceDeleted, id)
	respondStatus(c, http.StatusOK)
}

// PostDevice handles POST /api/devices/:id. The path id is authoritative:
// a body deviceId that disagrees with it is rejected.
func (h *Handler) PostDevice(c *gin.Context) {
	id := c.Param("id")
	if _, err := parse.ParseDeviceID(id); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req postDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Device.DeviceID != "" && req.Device.DeviceID != id {
		respondError(c, http.StatusBadRequest, "deviceId in body does not match path")
		return
	}

	device, err := fromDeviceInput(id, *req.Device)
	if err != nil {
		if errors.Is(err, model.ErrInvalidDevice) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if h.gateway.SetDevice(id, device) {
		h.publish(c, events.DeviceReplaced, id)
	} else {
		h.publish(c, events.DeviceRegistered, id)
	}
	respondStatus(c, http.StatusOK)
}
