package cloudasset

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openflighthpc/cluster-builder/internal/handler"
	"github.com/openflighthpc/cluster-builder/pkg/openstack"
)

func NewHandler(assetService assetService) Handler {
	return Handler{assetService}
}

type assetService interface {
	List(ctx context.Context, credentials openstack.Credentials) (Assets, error)
}

type Handler struct {
	assetService assetService
}

// List cloud assets
func (h Handler) List(c *gin.Context) {
	// swagger:route GET /cloud-assets listCloudAssets
	//
	// List cloud assets
	//
	// List the flavors, images, keypairs, networks and sahara assets of an OpenStack project.
	//
	// responses:
	//   200: CloudAssets
	//   400: Error
	//   401: Error
	//   502: Error
	var credentials openstack.Credentials
	if err := c.ShouldBindQuery(&credentials); err != nil {
		_ = c.Error(handler.BindingError(err))
		return
	}

	assets, err := h.assetService.List(c.Request.Context(), credentials)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, assets)
}
