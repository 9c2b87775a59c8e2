package cloudasset

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/openflighthpc/cluster-builder/pkg/openstack"
	"github.com/openflighthpc/cluster-builder/pkg/quota"
)

// Cloud is the OpenStack project whose assets are listed.
type Cloud interface {
	ListFlavors(ctx context.Context) ([]quota.Flavor, error)
	ListImages(ctx context.Context) ([]openstack.Asset, error)
	ListKeypairs(ctx context.Context) ([]openstack.Asset, error)
	ListNetworks(ctx context.Context) ([]openstack.Network, error)
	ListSaharaPlugins(ctx context.Context) ([]openstack.Asset, error)
	ListSaharaImages(ctx context.Context) ([]openstack.Asset, error)
	ListSaharaClusterTemplates(ctx context.Context) ([]openstack.Asset, error)
}

var _ Cloud = (*openstack.Cloud)(nil)

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

func NewService(logger *slog.Logger, connect Connect) *Service {
	return &Service{logger: logger, connect: connect}
}

type Service struct {
	logger  *slog.Logger
	connect Connect
}

// Assets are the assets of a project parameters of clusters can refer to.
type Assets struct {
	Flavors  []openstack.Asset   `json:"flavors"`
	Images   []openstack.Asset   `json:"images"`
	Keypairs []openstack.Asset   `json:"keypairs"`
	Networks []openstack.Network `json:"networks"`
	Sahara   SaharaAssets        `json:"sahara"`
}

// SaharaAssets are empty if the project has no data processing service.
type SaharaAssets struct {
	Plugins          []openstack.Asset `json:"plugins"`
	Images           []openstack.Asset `json:"images"`
	ClusterTemplates []openstack.Asset `json:"cluster_templates"`
}

// List fetches every kind of asset of the project in parallel. Failing to fetch any of them
// fails the whole listing.
func (s *Service) List(ctx context.Context, credentials openstack.Credentials) (Assets, error) {
	cloud, err := s.connect(ctx, credentials)
	if err != nil {
		return Assets{}, err
	}

	var assets Assets
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		flavors, err := cloud.ListFlavors(ctx)
		if err != nil {
			return err
		}
		assets.Flavors = make([]openstack.Asset, len(flavors))
		for i, flavor := range flavors {
			assets.Flavors[i] = openstack.Asset{ID: flavor.Name, Name: flavor.Name}
		}
		return nil
	})
	g.Go(func() (err error) {
		assets.Images, err = cloud.ListImages(ctx)
		return err
	})
	g.Go(func() (err error) {
		assets.Keypairs, err = cloud.ListKeypairs(ctx)
		return err
	})
	g.Go(func() (err error) {
		assets.Networks, err = cloud.ListNetworks(ctx)
		return err
	})
	g.Go(func() (err error) {
		assets.Sahara.Plugins, err = cloud.ListSaharaPlugins(ctx)
		return err
	})
	g.Go(func() (err error) {
		assets.Sahara.Images, err = cloud.ListSaharaImages(ctx)
		return err
	})
	g.Go(func() (err error) {
		assets.Sahara.ClusterTemplates, err = cloud.ListSaharaClusterTemplates(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list cloud assets", "error", err)
		return Assets{}, err
	}

	return assets, nil
}
