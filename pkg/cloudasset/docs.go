// Package cloudasset lists the assets of an OpenStack project which the parameters of a cluster
// can refer to.
package cloudasset

import "github.com/openflighthpc/cluster-builder/pkg/openstack"

// swagger:response CloudAssets
type _ struct {
	// in: body
	Body Assets
}

// swagger:parameters listCloudAssets
type _ struct {
	openstack.Credentials
}
