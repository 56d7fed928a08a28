package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is set from the build at startup
var Version = "dev"

// ErrorResponse is the JSON body returned on failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// VersionInfo godoc
// @Summary Server version
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func VersionInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}
