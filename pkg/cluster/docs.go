// Package cluster launches clusters of a cluster type on OpenStack and pays for them using a
// billing account.
package cluster

import "github.com/openflighthpc/cluster-builder/pkg/openstack"

// swagger:response Cluster
type _ struct {
	// in: body
	Body openstack.Cluster
}

// swagger:parameters createCluster
type _ struct {
	// in: body
	// required: true
	Body CreateClusterRequest
}
