package openstack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gophercloud/gophercloud/v2/openstack/orchestration/v1/stacks"
)

// HeatBackend launches clusters as heat stacks created from the composed template of a cluster
// type.
type HeatBackend struct {
	logger *slog.Logger
	cloud  *Cloud
}

func (b HeatBackend) CreateCluster(ctx context.Context, request ClusterRequest) (Cluster, error) {
	template := request.Submission.Template
	if template == nil {
		return Cluster{}, fmt.Errorf("cluster type %q has no template", request.ClusterType.ID)
	}
	document, err := template.YAML()
	if err != nil {
		return Cluster{}, err
	}

	client, err := b.cloud.orchestration()
	if err != nil {
		return Cluster{}, err
	}

	name := fmt.Sprintf("%s--%s", request.Name, uuid.NewString())
	b.logger.InfoContext(ctx, "Creating stack", "stack", name, "clusterType", request.ClusterType.ID)

	opts := stackCreateOpts{
		Name:       name,
		Template:   document,
		Files:      template.Files,
		Parameters: request.Submission.Parameters,
	}
	stack, err := stacks.Create(ctx, client, opts).Extract()
	if err != nil {
		return Cluster{}, heatError(err)
	}

	return Cluster{ID: stack.ID, Name: name}, nil
}

// stackCreateOpts carries a template whose files were already resolved when its cluster type was
// loaded.
type stackCreateOpts struct {
	Name       string
	Template   string
	Files      map[string]string
	Parameters map[string]any
}

func (o stackCreateOpts) ToStackCreateMap() (map[string]any, error) {
	files := o.Files
	if files == nil {
		files = map[string]string{}
	}
	parameters := o.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}
	return map[string]any{
		"stack_name": o.Name,
		"template":   o.Template,
		"files":      files,
		"parameters": parameters,
	}, nil
}
