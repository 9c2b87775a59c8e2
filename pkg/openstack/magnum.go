package openstack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gophercloud/gophercloud/v2/openstack/containerinfra/v1/clusters"
	"github.com/gophercloud/gophercloud/v2/openstack/containerinfra/v1/clustertemplates"
)

// MagnumBackend launches clusters from a magnum cluster template.
type MagnumBackend struct {
	logger *slog.Logger
	cloud  *Cloud
}

func (b MagnumBackend) CreateCluster(ctx context.Context, request ClusterRequest) (Cluster, error) {
	spec, ok := request.ClusterType.Upstream()
	if !ok {
		return Cluster{}, fmt.Errorf("cluster type %q has no upstream template", request.ClusterType.ID)
	}

	client, err := b.cloud.containerInfra()
	if err != nil {
		return Cluster{}, err
	}

	b.logger.DebugContext(ctx, "Getting cluster template", "clusterTemplate", spec.UpstreamTemplate)
	template, err := clustertemplates.Get(ctx, client, spec.UpstreamTemplate).Extract()
	if err != nil {
		return Cluster{}, magnumError(err, request.Answers)
	}

	b.logger.InfoContext(ctx, "Creating cluster", "cluster", request.Name, "clusterType", request.ClusterType.ID)
	opts := clusterCreateOpts{}
	for name, value := range request.Submission.Parameters {
		opts[name] = value
	}
	opts["name"] = request.Name
	opts["cluster_template_id"] = template.UUID

	id, err := clusters.Create(ctx, client, opts).Extract()
	if err != nil {
		return Cluster{}, magnumError(err, request.Answers)
	}

	return Cluster{ID: id, Name: request.Name}, nil
}

// clusterCreateOpts passes the parameters of a cluster type through to magnum.
type clusterCreateOpts map[string]any

func (o clusterCreateOpts) ToClusterCreateMap() (map[string]any, error) {
	return o, nil
}
