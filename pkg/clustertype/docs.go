package clustertype

// swagger:parameters clusterType
type _ struct {
	// in: path
	// required: true
	ID string `json:"id"`
}

// swagger:response ClusterTypeResponse
type _ struct {
	//in: body
	_ ClusterTypeResponse
}

// swagger:response ClusterTypesResponse
type _ struct {
	//in: body
	_ []ClusterTypeResponse
}
