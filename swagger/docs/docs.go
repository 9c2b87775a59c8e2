package docs

import "github.com/openflighthpc/cluster-builder/internal/middleware"

// swagger:response
type Error struct {
	// The JSON:API error document
	//in: body
	Body middleware.ErrorResponse
}
