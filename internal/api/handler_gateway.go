package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayResponse represents the API response for the gateway itself.
type GatewayResponse struct {
	Name        string `json:"name"`
	UID         string `json:"uid"`
	Address     string `json:"address"`
	Port        int    `json:"port"`
	SSDPPort    int    `json:"ssdpPort"`
	DeviceCount int    `json:"deviceCount"`
}

// GetGateway handles GET /api/gateway.
func (h *Handler) GetGateway(c *gin.Context) {
	info := h.gateway.Info()
	respond(c, http.StatusOK, GatewayResponse{
		Name:        info.Name,
		UID:         info.UID,
		Address:     info.Address,
		Port:        info.Port,
		SSDPPort:    info.SSDPPort,
		DeviceCount: h.gateway.Count(),
	})
}
