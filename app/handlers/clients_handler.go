package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/self-ai-0084/selfailab-public/app/domains"
	"github.com/self-ai-0084/selfailab-public/app/dto"
)

// FleetViewer produces the aggregate view served by the API
type FleetViewer interface {
	View() *domains.AggregateView
}

// respondJSON sends a pretty-printed JSON response
func respondJSON(c *gin.Context, status int, data interface{}) {
	c.IndentedJSON(status, data)
}

// respondError sends an error response
func respondError(c *gin.Context, status int, message string, details map[string]string) {
	respondJSON(c, status, dto.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// ClientsHandler exposes the registry read-only
type ClientsHandler struct {
	viewer FleetViewer
}

// NewClientsHandler creates a new clients handler
func NewClientsHandler(viewer FleetViewer) *ClientsHandler {
	return &ClientsHandler{viewer: viewer}
}

// List returns every known client with its liveness computed now
func (h *ClientsHandler) List(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	respondJSON(c, http.StatusOK, h.viewer.View())
}

// NotFound answers every unknown route
func NotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, "not found", map[string]string{"path": c.Request.URL.Path})
}
