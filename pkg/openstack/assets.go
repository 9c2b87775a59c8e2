package openstack

import (
	"context"
	"errors"

	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/keypairs"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/external"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"
)

// Asset is something of a project that can be referred to in the parameters of a cluster.
type Asset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Network struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	External bool   `json:"external"`
}

// The assets of nova, glance and neutron use their name as id so cluster types can name defaults.

func (c *Cloud) ListKeypairs(ctx context.Context) ([]Asset, error) {
	client, err := c.compute()
	if err != nil {
		return nil, err
	}

	pages, err := keypairs.List(client, keypairs.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, upstreamError(err)
	}
	all, err := keypairs.ExtractKeyPairs(pages)
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, len(all))
	for i, keypair := range all {
		assets[i] = Asset{ID: keypair.Name, Name: keypair.Name}
	}
	return assets, nil
}

func (c *Cloud) ListImages(ctx context.Context) ([]Asset, error) {
	client, err := c.image()
	if err != nil {
		return nil, err
	}

	pages, err := images.List(client, images.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, upstreamError(err)
	}
	all, err := images.ExtractImages(pages)
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, len(all))
	for i, image := range all {
		assets[i] = Asset{ID: image.Name, Name: image.Name}
	}
	return assets, nil
}

func (c *Cloud) ListNetworks(ctx context.Context) ([]Network, error) {
	client, err := c.network()
	if err != nil {
		return nil, err
	}

	pages, err := networks.List(client, networks.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, upstreamError(err)
	}
	var all []struct {
		networks.Network
		external.NetworkExternalExt
	}
	if err := networks.ExtractNetworksInto(pages, &all); err != nil {
		return nil, err
	}

	result := make([]Network, len(all))
	for i, network := range all {
		result[i] = Network{ID: network.Name, Name: network.Name, External: network.External}
	}
	return result, nil
}

// ListSaharaPlugins lists the plugins of sahara. Projects without sahara have none.
func (c *Cloud) ListSaharaPlugins(ctx context.Context) ([]Asset, error) {
	client, err := c.dataProcessing()
	if errors.Is(err, errNoEndpoint) {
		return []Asset{}, nil
	}
	if err != nil {
		return nil, err
	}

	plugins, err := listPlugins(ctx, client)
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, len(plugins))
	for i, plugin := range plugins {
		assets[i] = Asset{ID: plugin.Name, Name: plugin.Name}
	}
	return assets, nil
}

func (c *Cloud) ListSaharaImages(ctx context.Context) ([]Asset, error) {
	client, err := c.dataProcessing()
	if errors.Is(err, errNoEndpoint) {
		return []Asset{}, nil
	}
	if err != nil {
		return nil, err
	}

	all, err := listSaharaImages(ctx, client)
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, len(all))
	for i, image := range all {
		assets[i] = Asset{ID: image.ID, Name: image.Name}
	}
	return assets, nil
}

func (c *Cloud) ListSaharaClusterTemplates(ctx context.Context) ([]Asset, error) {
	client, err := c.dataProcessing()
	if errors.Is(err, errNoEndpoint) {
		return []Asset{}, nil
	}
	if err != nil {
		return nil, err
	}

	templates, err := listClusterTemplates(ctx, client)
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, len(templates))
	for i, template := range templates {
		assets[i] = Asset{ID: template.ID, Name: template.Name}
	}
	return assets, nil
}
