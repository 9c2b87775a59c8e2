package openstack

import (
	"context"

	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/limits"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/flavors"
	computelimits "github.com/gophercloud/gophercloud/v2/openstack/compute/v2/limits"

	"github.com/openflighthpc/cluster-builder/pkg/quota"
)

// ListFlavors lists the flavors available to the project.
func (c *Cloud) ListFlavors(ctx context.Context) ([]quota.Flavor, error) {
	client, err := c.compute()
	if err != nil {
		return nil, err
	}

	pages, err := flavors.ListDetail(client, flavors.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, upstreamError(err)
	}
	all, err := flavors.ExtractFlavors(pages)
	if err != nil {
		return nil, err
	}

	result := make([]quota.Flavor, len(all))
	for i, flavor := range all {
		result[i] = quota.Flavor{
			Name:  flavor.Name,
			RAM:   flavor.RAM,
			VCPUs: flavor.VCPUs,
			Disk:  flavor.Disk,
		}
	}
	return result, nil
}

// ComputeLimits returns the instance, vCPU and RAM limits of the project.
func (c *Cloud) ComputeLimits(ctx context.Context) (quota.Limits, error) {
	client, err := c.compute()
	if err != nil {
		return nil, err
	}

	l, err := computelimits.Get(ctx, client, nil).Extract()
	if err != nil {
		return nil, upstreamError(err)
	}

	absolute := l.Absolute
	return quota.Limits{
		quota.DimensionRAM:       {TotalAllowed: absolute.MaxTotalRAMSize, Used: absolute.TotalRAMUsed, Units: "MB"},
		quota.DimensionVCPUs:     {TotalAllowed: absolute.MaxTotalCores, Used: absolute.TotalCoresUsed},
		quota.DimensionInstances: {TotalAllowed: absolute.MaxTotalInstances, Used: absolute.TotalInstancesUsed},
	}, nil
}

// VolumeLimits returns the volume and volume disk limits of the project.
func (c *Cloud) VolumeLimits(ctx context.Context) (quota.Limits, error) {
	client, err := c.blockStorage()
	if err != nil {
		return nil, err
	}

	l, err := limits.Get(ctx, client).Extract()
	if err != nil {
		return nil, upstreamError(err)
	}

	absolute := l.Absolute
	return quota.Limits{
		quota.DimensionVolumeDisk: {TotalAllowed: absolute.MaxTotalVolumeGigabytes, Used: absolute.TotalGigabytesUsed, Units: "GB"},
		quota.DimensionVolumes:    {TotalAllowed: absolute.MaxTotalVolumes, Used: absolute.TotalVolumesUsed},
	}, nil
}
