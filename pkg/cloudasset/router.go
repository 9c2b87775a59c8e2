package cloudasset

import "github.com/gin-gonic/gin"

func Routes(r *gin.RouterGroup, handler Handler) {
	r.GET("/cloud-assets", handler.List)
}
