package clustertype

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func NewHandler(repository clusterTypeRepository) Handler {
	return Handler{
		repository: repository,
	}
}

type clusterTypeRepository interface {
	List(ctx context.Context) ([]*ClusterType, error)
	Find(ctx context.Context, id string) (*ClusterType, error)
}

type Handler struct {
	repository clusterTypeRepository
}

// ClusterTypeResponse is the representation of a cluster type offered to callers.
type ClusterTypeResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Parameters      map[string]Parameter `json:"parameters"`
	ParameterGroups []ParameterGroup     `json:"parameter_groups"`
	LastModified    string               `json:"last_modified"`
	Order           int                  `json:"order"`
	LogoURL         string               `json:"logo_url"`
	Instructions    []Instruction        `json:"instructions"`
}

func newClusterTypeResponse(clusterType *ClusterType) ClusterTypeResponse {
	return ClusterTypeResponse{
		ID:              clusterType.ID,
		Title:           clusterType.Title,
		Description:     clusterType.Description,
		Parameters:      clusterType.Parameters(),
		ParameterGroups: clusterType.ParameterGroups,
		LastModified:    httpTime(clusterType.LastModified),
		Order:           clusterType.Order,
		LogoURL:         clusterType.LogoURL,
		Instructions:    clusterType.Instructions,
	}
}

// FindAll cluster types
func (h Handler) FindAll(c *gin.Context) {
	// swagger:route GET /cluster-types clusterTypes
	//
	// Find all cluster types
	//
	// Find all valid cluster types ordered by their order and id. Responds with 304 if the
	// If-Modified-Since header matches the latest modification of any cluster type.
	//
	// Responses:
	//   200: ClusterTypesResponse
	//   304:
	clusterTypes, err := h.repository.List(c.Request.Context())
	if err != nil {
		_ = c.Error(fmt.Errorf("error loading cluster types: %w", err))
		return
	}

	lastModified := LastModified(clusterTypes...)
	if notModified(c, lastModified) {
		c.Status(http.StatusNotModified)
		return
	}

	response := make([]ClusterTypeResponse, len(clusterTypes))
	for i, clusterType := range clusterTypes {
		response[i] = newClusterTypeResponse(clusterType)
	}
	setLastModified(c, lastModified)
	c.JSON(http.StatusOK, response)
}

// Find cluster type
func (h Handler) Find(c *gin.Context) {
	// swagger:route GET /cluster-types/{id} clusterType
	//
	// Find cluster type
	//
	// Find cluster type by id. Responds with 304 if the If-Modified-Since header matches its
	// last modification.
	//
	// Responses:
	//   200: ClusterTypeResponse
	//   304:
	//   404: Error
	clusterType, err := h.repository.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	if notModified(c, clusterType.LastModified) {
		c.Status(http.StatusNotModified)
		return
	}

	setLastModified(c, clusterType.LastModified)
	c.JSON(http.StatusOK, newClusterTypeResponse(clusterType))
}

// notModified compares the If-Modified-Since header with lastModified at second precision.
func notModified(c *gin.Context, lastModified time.Time) bool {
	header := c.GetHeader("If-Modified-Since")
	if header == "" || lastModified.IsZero() {
		return false
	}
	since, err := http.ParseTime(header)
	if err != nil {
		return false
	}
	return since.Unix() == lastModified.Unix()
}

func setLastModified(c *gin.Context, lastModified time.Time) {
	if !lastModified.IsZero() {
		c.Header("Last-Modified", httpTime(lastModified))
	}
}

func httpTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
