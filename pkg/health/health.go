package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports whether the service is running
func Health(c *gin.Context) {
	// swagger:route GET /health health
	//
	// Service health status
	//
	// Show service health status
	//
	// Responses:
	//   200: Health
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}

func Routes(r *gin.RouterGroup) {
	r.GET("/health", Health)
}
