package cluster

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openflighthpc/cluster-builder/internal/handler"
	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
	"github.com/openflighthpc/cluster-builder/pkg/openstack"
)

func NewHandler(clusterService clusterService) Handler {
	return Handler{clusterService}
}

type clusterService interface {
	Create(ctx context.Context, credentials openstack.Credentials, request Request) (openstack.Cluster, error)
}

type Handler struct {
	clusterService clusterService
}

type CreateClusterRequest struct {
	CloudEnv         openstack.Credentials `json:"cloud_env"`
	Cluster          ClusterSpec           `json:"cluster"`
	BillingAccountID string                `json:"billing_account_id" binding:"required"`
	MiddlewareURL    string                `json:"middleware_url" binding:"required"`
}

type ClusterSpec struct {
	Name          string                 `json:"name" binding:"required"`
	ClusterTypeID string                 `json:"cluster_type_id" binding:"required"`
	Parameters    clustertype.Answers    `json:"parameters"`
	Selections    clustertype.Selections `json:"selections"`
}

// Create cluster
func (h Handler) Create(c *gin.Context) {
	// swagger:route POST /clusters createCluster
	//
	// Create cluster
	//
	// Launch a cluster of a cluster type on OpenStack and place an order for it on the billing account.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: Cluster
	//   400: Error
	//   401: Error
	//   402: Error
	//   404: Error
	//   409: Error
	//   415: Error
	//   502: Error
	var request CreateClusterRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	cluster, err := h.clusterService.Create(c.Request.Context(), request.CloudEnv, Request{
		Name:             request.Cluster.Name,
		ClusterTypeID:    request.Cluster.ClusterTypeID,
		Answers:          request.Cluster.Parameters,
		Selections:       request.Cluster.Selections,
		BillingAccountID: request.BillingAccountID,
		MiddlewareURL:    request.MiddlewareURL,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cluster)
}
