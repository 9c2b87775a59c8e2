package clustertype

import "github.com/gin-gonic/gin"

func Routes(r *gin.RouterGroup, handler Handler) {
	r.GET("/cluster-types", handler.FindAll)
	r.GET("/cluster-types/:id", handler.Find)
}
