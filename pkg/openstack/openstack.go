// Package openstack talks to the OpenStack services clusters are launched on: keystone for
// authentication, heat, magnum and sahara for launching clusters, and nova, cinder, glance and
// neutron for the facts and assets of a project.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
)

var errNoEndpoint = errors.New("no endpoint found for service")

const (
	requestTimeout = 30 * time.Second
	connectTimeout = 30 * time.Second
	connectPause   = 1 * time.Second
)

// Cluster is a cluster launched on OpenStack.
type Cluster struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClusterRequest is what a backend needs to launch a cluster.
type ClusterRequest struct {
	Name        string
	ClusterType *clustertype.ClusterType
	Submission  *clustertype.Submission
	// Answers are the parameters as given by the caller. Errors of the backend are traced back to
	// the answer causing them.
	Answers clustertype.Answers
}

func NewConnector(logger *slog.Logger) *Connector {
	return &Connector{
		logger:         logger,
		requestTimeout: requestTimeout,
		connectTimeout: connectTimeout,
		connectPause:   connectPause,
	}
}

// Connector authenticates against keystone.
type Connector struct {
	logger         *slog.Logger
	requestTimeout time.Duration
	connectTimeout time.Duration
	connectPause   time.Duration
}

// Connect authenticates using the given credentials. Connection errors are retried for up to 30
// seconds.
func (c *Connector) Connect(ctx context.Context, credentials Credentials) (*Cloud, error) {
	c.logger.DebugContext(ctx, "Connecting to OpenStack", "credentials", credentials)

	deadline := time.Now().Add(c.connectTimeout)
	for {
		provider, err := c.authenticate(ctx, credentials)
		if err == nil {
			c.logger.DebugContext(ctx, "Connected to OpenStack", "authUrl", credentials.AuthURL)
			return &Cloud{logger: c.logger, provider: provider}, nil
		}
		if !isConnectionError(err) || time.Now().Add(c.connectPause).After(deadline) {
			return nil, upstreamError(err)
		}

		c.logger.ErrorContext(ctx, "Failed to connect to OpenStack. Retrying...", "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.connectPause):
		}
	}
}

func (c *Connector) authenticate(ctx context.Context, credentials Credentials) (*gophercloud.ProviderClient, error) {
	provider, err := openstack.NewClient(credentials.AuthURL)
	if err != nil {
		return nil, errdef.WithPointer(errdef.NewBadRequest("invalid auth_url: %v", err), "/cloud_env/auth_url")
	}
	provider.HTTPClient = http.Client{Timeout: c.requestTimeout}

	err = openstack.Authenticate(ctx, provider, credentials.authOptions())
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// Cloud is an authenticated connection to the services of one OpenStack project.
type Cloud struct {
	logger   *slog.Logger
	provider *gophercloud.ProviderClient
}

// CreateCluster launches a cluster using the backend matching the kind of the cluster type.
func (c *Cloud) CreateCluster(ctx context.Context, request ClusterRequest) (Cluster, error) {
	var backend interface {
		CreateCluster(ctx context.Context, request ClusterRequest) (Cluster, error)
	}
	switch request.ClusterType.Kind {
	case clustertype.KindHeat:
		backend = HeatBackend{logger: c.logger, cloud: c}
	case clustertype.KindMagnum:
		backend = MagnumBackend{logger: c.logger, cloud: c}
	case clustertype.KindSahara:
		backend = SaharaBackend{logger: c.logger, cloud: c}
	default:
		return Cluster{}, fmt.Errorf("unknown cluster type kind %q for cluster type %q", request.ClusterType.Kind, request.ClusterType.ID)
	}
	return backend.CreateCluster(ctx, request)
}

func (c *Cloud) orchestration() (*gophercloud.ServiceClient, error) {
	return serviceClient(openstack.NewOrchestrationV1(c.provider, gophercloud.EndpointOpts{}))
}

func (c *Cloud) containerInfra() (*gophercloud.ServiceClient, error) {
	return serviceClient(openstack.NewContainerInfraV1(c.provider, gophercloud.EndpointOpts{}))
}

func (c *Cloud) compute() (*gophercloud.ServiceClient, error) {
	return serviceClient(openstack.NewComputeV2(c.provider, gophercloud.EndpointOpts{}))
}

func (c *Cloud) blockStorage() (*gophercloud.ServiceClient, error) {
	return serviceClient(openstack.NewBlockStorageV3(c.provider, gophercloud.EndpointOpts{}))
}

func (c *Cloud) image() (*gophercloud.ServiceClient, error) {
	return serviceClient(openstack.NewImageV2(c.provider, gophercloud.EndpointOpts{}))
}

func (c *Cloud) network() (*gophercloud.ServiceClient, error) {
	return serviceClient(openstack.NewNetworkV2(c.provider, gophercloud.EndpointOpts{}))
}

// dataProcessing returns a client of sahara. gophercloud does not ship one so requests are made
// using a plain service client.
func (c *Cloud) dataProcessing() (*gophercloud.ServiceClient, error) {
	url, err := c.provider.EndpointLocator(gophercloud.EndpointOpts{
		Type:         dataProcessingService,
		Availability: gophercloud.AvailabilityPublic,
	})
	if err != nil {
		return nil, errdef.NewBadGateway("%w %q: %v", errNoEndpoint, dataProcessingService, err)
	}
	return &gophercloud.ServiceClient{
		ProviderClient: c.provider,
		Endpoint:       gophercloud.NormalizeURL(url),
		Type:           dataProcessingService,
	}, nil
}

func serviceClient(client *gophercloud.ServiceClient, err error) (*gophercloud.ServiceClient, error) {
	if err != nil {
		return nil, errdef.NewBadGateway("%w: %v", errNoEndpoint, err)
	}
	return client, nil
}
