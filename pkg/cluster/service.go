package cluster

import (
	"context"
	"log/slog"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/openflighthpc/cluster-builder/pkg/billing"
	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
	"github.com/openflighthpc/cluster-builder/pkg/openstack"
	"github.com/openflighthpc/cluster-builder/pkg/quota"
)

const (
	stackIDTag   = "openstack_stack_id"
	stackNameTag = "openstack_stack_name"
)

// Backend launches clusters.
type Backend interface {
	CreateCluster(ctx context.Context, request openstack.ClusterRequest) (openstack.Cluster, error)
}

// Cloud is the OpenStack project clusters are launched in.
type Cloud interface {
	Backend
	ListFlavors(ctx context.Context) ([]quota.Flavor, error)
	ComputeLimits(ctx context.Context) (quota.Limits, error)
	VolumeLimits(ctx context.Context) (quota.Limits, error)
}

var _ Cloud = (*openstack.Cloud)(nil)

// Connect authenticates against OpenStack using the given credentials.
type Connect func(ctx context.Context, credentials openstack.Credentials) (Cloud, error)

// OpenStack connects using the given connector.
func OpenStack(connector *openstack.Connector) Connect {
	return func(ctx context.Context, credentials openstack.Credentials) (Cloud, error) {
		cloud, err := connector.Connect(ctx, credentials)
		if err != nil {
			return nil, err
		}
		return cloud, nil
	}
}

type clusterTypeRepository interface {
	Find(ctx context.Context, id string) (*clustertype.ClusterType, error)
}

type billingClient interface {
	GetCredits(ctx context.Context, baseURL, billingAccountID string) (float64, error)
	CreateOrder(ctx context.Context, baseURL, billingAccountID string) (string, error)
	DeleteOrder(ctx context.Context, baseURL, orderID string) error
	AddOrderTag(ctx context.Context, baseURL, orderID, name, value string) error
}

func NewService(logger *slog.Logger, repository clusterTypeRepository, connect Connect, billingClient billingClient) *Service {
	return &Service{
		logger:     logger,
		repository: repository,
		connect:    connect,
		billing:    billingClient,
	}
}

type Service struct {
	logger     *slog.Logger
	repository clusterTypeRepository
	connect    Connect
	billing    billingClient
}

// Request is a request to launch a cluster paid for by a billing account.
type Request struct {
	Name             string
	ClusterTypeID    string
	Answers          clustertype.Answers
	Selections       clustertype.Selections
	BillingAccountID string
	MiddlewareURL    string
}

// Create launches a cluster. The request is validated against its cluster type and the limits
// of the project before an order is placed on the billing account. The order is deleted again if
// the cluster cannot be launched.
func (s *Service) Create(ctx context.Context, credentials openstack.Credentials, request Request) (openstack.Cluster, error) {
	clusterType, err := s.repository.Find(ctx, request.ClusterTypeID)
	if err != nil {
		return openstack.Cluster{}, err
	}

	cloud, err := s.connect(ctx, credentials)
	if err != nil {
		return openstack.Cluster{}, err
	}

	flavors, limits, err := projectFacts(ctx, cloud)
	if err != nil {
		return openstack.Cluster{}, err
	}
	s.logger.InfoContext(ctx, "Project limits", "limits", limits)

	submission, err := clustertype.PrepareSubmission(clusterType, request.Answers, request.Selections, flavors)
	if err != nil {
		return openstack.Cluster{}, err
	}
	if err := quota.CheckLimits(submission.Usage, limits); err != nil {
		return openstack.Cluster{}, err
	}

	credits, err := s.billing.GetCredits(ctx, request.MiddlewareURL, request.BillingAccountID)
	if err != nil {
		return openstack.Cluster{}, err
	}
	s.logger.InfoContext(ctx, "Billing account credits available", "billingAccountId", request.BillingAccountID, "credits", credits)
	if int(credits) <= 0 {
		return openstack.Cluster{}, billing.InsufficientCredits(credits)
	}

	orderID, err := s.billing.CreateOrder(ctx, request.MiddlewareURL, request.BillingAccountID)
	if err != nil {
		return openstack.Cluster{}, err
	}

	cluster, err := cloud.CreateCluster(ctx, openstack.ClusterRequest{
		Name:        request.Name,
		ClusterType: clusterType,
		Submission:  submission,
		Answers:     request.Answers,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Cluster creation failed", "clusterType", clusterType.ID, "error", err)
		if deleteErr := s.billing.DeleteOrder(ctx, request.MiddlewareURL, orderID); deleteErr != nil {
			s.logger.ErrorContext(ctx, "Failed to delete order", "orderId", orderID, "error", deleteErr)
		}
		return openstack.Cluster{}, err
	}
	s.logger.InfoContext(ctx, "Created cluster", "id", cluster.ID, "name", cluster.Name, "orderId", orderID)

	if err := s.billing.AddOrderTag(ctx, request.MiddlewareURL, orderID, stackIDTag, cluster.ID); err != nil {
		return openstack.Cluster{}, err
	}
	if err := s.billing.AddOrderTag(ctx, request.MiddlewareURL, orderID, stackNameTag, cluster.Name); err != nil {
		return openstack.Cluster{}, err
	}

	return cluster, nil
}

// projectFacts fetches the flavors and limits of the project in parallel.
func projectFacts(ctx context.Context, cloud Cloud) ([]quota.Flavor, quota.Limits, error) {
	var flavors []quota.Flavor
	var computeLimits, volumeLimits quota.Limits

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		flavors, err = cloud.ListFlavors(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		computeLimits, err = cloud.ComputeLimits(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		volumeLimits, err = cloud.VolumeLimits(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	limits := make(quota.Limits, len(computeLimits)+len(volumeLimits))
	maps.Copy(limits, computeLimits)
	maps.Copy(limits, volumeLimits)
	return flavors, limits, nil
}
