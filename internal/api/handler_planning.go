package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"semp-gateway/internal/events"
	"semp-gateway/internal/model"
)

type postPlanningRequest struct {
	PlanningRequest *planningRequestInput `json:"planningRequest" binding:"required"`
}

// GetPlanningRequests handles GET /api/devices/:id/planningRequests.
func (h *Handler) GetPlanningRequests(c *gin.Context) {
	device, ok := h.gateway.GetDevice(c.Param("id"))
	if !ok {
		respondStatus(c, http.StatusNotFound)
		return
	}
	respond(c, http.StatusOK, ToWirePlanningRequests(device.PlanningRequests()))
}

// DeletePlanningRequests handles DELETE /api/devices/:id/planningRequests.
func (h *Handler) DeletePlanningRequests(c *gin.Context) {
	id := c.Param("id")
	device, ok := h.gateway.GetDevice(id)
	if !ok {
		respondStatus(c, http.StatusNotFound)
		return
	}
	device.ClearPlanningRequests()
	h.publish(c, events.PlanningCleared, id)
	respondStatus(c, http.StatusOK)
}

// PostPlanningRequest handles POST /api/devices/:id/planningRequests.
func (h *Handler) PostPlanningRequest(c *gin.Context) {
	id := c.Param("id")
	device, ok := h.gateway.GetDevice(id)
	if !ok {
		respondStatus(c, http.StatusNotFound)
		return
	}

	var req postPlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	in := req.PlanningRequest
	pr, err := device.AddPlanningRequest(*in.EarliestStart, *in.LatestEnd, *in.MinDuration, *in.MaxDuration)
	if errors.Is(err, model.ErrInvalidPlanningRequest) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	h.publish(c, events.PlanningAdded, id)
	respond(c, http.StatusOK, toWirePlanningRequest(pr))
}
