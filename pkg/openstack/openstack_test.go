package openstack

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
	"github.com/openflighthpc/cluster-builder/pkg/quota"
)

func TestConnector_Connect(t *testing.T) {
	t.Run("Unauthorized", func(t *testing.T) {
		denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"code": 401, "message": "The request you have made requires authentication.", "title": "Unauthorized"}}`))
		}))
		defer denied.Close()
		credentials := Credentials{AuthURL: denied.URL + "/v3", UserID: "user", Password: "wrong", ProjectID: "project"}

		_, err := testConnector().Connect(t.Context(), credentials)

		require.Error(t, err)
		status, ok := errdef.UpstreamStatus(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.ErrorContains(t, err, "The request you have made requires authentication.")
	})

	t.Run("Unreachable", func(t *testing.T) {
		unreachable := httptest.NewServer(http.NotFoundHandler())
		unreachable.Close()
		credentials := Credentials{AuthURL: unreachable.URL + "/v3", UserID: "user", Password: "secret", ProjectID: "project"}

		_, err := testConnector().Connect(t.Context(), credentials)

		require.Error(t, err)
		assert.True(t, errdef.IsBadGateway(err))
	})
}

func TestCloud_Facts(t *testing.T) {
	f := newFakeCloud(t)
	f.service("compute", "/nova/v2.1")
	f.service("volumev3", "/cinder/v3/project")
	f.handle("GET /nova/v2.1/flavors/detail", http.StatusOK, `{"flavors": [
		{"id": "1", "name": "m1.small", "ram": 2048, "vcpus": 1, "disk": 20},
		{"id": "2", "name": "m1.large", "ram": 8192, "vcpus": 4, "disk": 80}
	]}`)
	f.handle("GET /nova/v2.1/limits", http.StatusOK, `{"limits": {"rate": [], "absolute": {
		"maxTotalRAMSize": 51200, "totalRAMUsed": 2048,
		"maxTotalCores": 20, "totalCoresUsed": 1,
		"maxTotalInstances": -1, "totalInstancesUsed": 1
	}}}`)
	f.handle("GET /cinder/v3/project/limits", http.StatusOK, `{"limits": {"rate": [], "absolute": {
		"maxTotalVolumeGigabytes": 1000, "totalGigabytesUsed": 50,
		"maxTotalVolumes": 10, "totalVolumesUsed": 2
	}}}`)
	cloud := f.connect()

	t.Run("ListFlavors", func(t *testing.T) {
		flavors, err := cloud.ListFlavors(t.Context())

		require.NoError(t, err)
		assert.Equal(t, []quota.Flavor{
			{Name: "m1.small", RAM: 2048, VCPUs: 1, Disk: 20},
			{Name: "m1.large", RAM: 8192, VCPUs: 4, Disk: 80},
		}, flavors)
	})

	t.Run("ComputeLimits", func(t *testing.T) {
		limits, err := cloud.ComputeLimits(t.Context())

		require.NoError(t, err)
		assert.Equal(t, quota.Limits{
			quota.DimensionRAM:       {TotalAllowed: 51200, Used: 2048, Units: "MB"},
			quota.DimensionVCPUs:     {TotalAllowed: 20, Used: 1},
			quota.DimensionInstances: {TotalAllowed: quota.Unlimited, Used: 1},
		}, limits)
	})

	t.Run("VolumeLimits", func(t *testing.T) {
		limits, err := cloud.VolumeLimits(t.Context())

		require.NoError(t, err)
		assert.Equal(t, quota.Limits{
			quota.DimensionVolumeDisk: {TotalAllowed: 1000, Used: 50, Units: "GB"},
			quota.DimensionVolumes:    {TotalAllowed: 10, Used: 2},
		}, limits)
	})
}

func heatRequest() ClusterRequest {
	return ClusterRequest{
		Name: "mycluster",
		ClusterType: &clustertype.ClusterType{
			ID:   "slurm",
			Kind: clustertype.KindHeat,
			Spec: &clustertype.HeatSpec{},
		},
		Submission: &clustertype.Submission{
			Parameters: map[string]any{"image": "rocky-9"},
			Template: &clustertype.Template{
				HeatTemplateVersion: "2021-04-16",
				Parameters:          map[string]clustertype.Parameter{"image": {Type: "string"}},
				Resources: map[string]any{
					"node": map[string]any{
						"type":       "OS::Nova::Server",
						"properties": map[string]any{"image": map[string]any{"get_param": "image"}},
					},
				},
				Files: map[string]string{"file:///cluster-types/slurm/setup.sh": "#!/bin/sh"},
			},
		},
		Answers: clustertype.Answers{"image": "rocky-9"},
	}
}

func TestHeatBackend_CreateCluster(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("orchestration", "/heat/v1/project")
		requests := f.record("POST /heat/v1/project/stacks", http.StatusCreated, `{"stack": {"id": "stack-id", "links": []}}`)
		cloud := f.connect()

		cluster, err := cloud.CreateCluster(t.Context(), heatRequest())

		require.NoError(t, err)
		assert.Equal(t, "stack-id", cluster.ID)
		assert.True(t, strings.HasPrefix(cluster.Name, "mycluster--"))
		request := <-requests
		assert.Equal(t, cluster.Name, request["stack_name"])
		assert.Equal(t, map[string]any{"image": "rocky-9"}, request["parameters"])
		assert.Equal(t, map[string]any{"file:///cluster-types/slurm/setup.sh": "#!/bin/sh"}, request["files"])
		assert.Contains(t, request["template"], "heat_template_version:")
		assert.Contains(t, request["template"], "2021-04-16")
	})

	t.Run("InvalidParameter", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("orchestration", "/heat/v1/project")
		f.handle("POST /heat/v1/project/stacks", http.StatusBadRequest, `{
			"code": 400, "title": "Bad Request", "explanation": "The server could not comply with the request since it is either malformed or otherwise incorrect.",
			"error": {"type": "StackValidationFailed", "traceback": null, "message": "Parameter 'image' is invalid: Error validating value 'rocky-9': The Image (rocky-9) could not be found."}
		}`)
		cloud := f.connect()

		_, err := cloud.CreateCluster(t.Context(), heatRequest())

		require.Error(t, err)
		status, _ := errdef.UpstreamStatus(err)
		assert.Equal(t, http.StatusBadRequest, status)
		pointer, _ := errdef.Pointer(err)
		assert.Equal(t, "/cluster/parameters/image", pointer)
		assert.EqualError(t, err, "Error validating value 'rocky-9': The Image (rocky-9) could not be found.")
	})

	t.Run("NoOrchestration", func(t *testing.T) {
		f := newFakeCloud(t)
		cloud := f.connect()

		_, err := cloud.CreateCluster(t.Context(), heatRequest())

		require.Error(t, err)
		assert.True(t, errdef.IsBadGateway(err))
	})
}

func upstreamRequest(kind clustertype.Kind, parameters map[string]any) ClusterRequest {
	return ClusterRequest{
		Name: "mycluster",
		ClusterType: &clustertype.ClusterType{
			ID:   string(kind),
			Kind: kind,
			Spec: &clustertype.UpstreamSpec{UpstreamTemplate: "upstream-template"},
		},
		Submission: &clustertype.Submission{Parameters: parameters},
		Answers:    parameters,
	}
}

func TestMagnumBackend_CreateCluster(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("container-infra", "/magnum/v1")
		f.handle("GET /magnum/v1/clustertemplates/upstream-template", http.StatusOK, `{"uuid": "template-uuid", "name": "upstream-template"}`)
		requests := f.record("POST /magnum/v1/clusters", http.StatusAccepted, `{"uuid": "cluster-uuid"}`)
		cloud := f.connect()

		cluster, err := cloud.CreateCluster(t.Context(), upstreamRequest(clustertype.KindMagnum, map[string]any{"keypair": "mykey", "node_count": float64(2)}))

		require.NoError(t, err)
		assert.Equal(t, Cluster{ID: "cluster-uuid", Name: "mycluster"}, cluster)
		assert.Equal(t, map[string]any{
			"name":                "mycluster",
			"cluster_template_id": "template-uuid",
			"keypair":             "mykey",
			"node_count":          float64(2),
		}, <-requests)
	})

	t.Run("UnknownKeypair", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("container-infra", "/magnum/v1")
		f.handle("GET /magnum/v1/clustertemplates/upstream-template", http.StatusOK, `{"uuid": "template-uuid"}`)
		f.handle("POST /magnum/v1/clusters", http.StatusNotFound, `{"errors": [{"request_id": "", "code": "client", "status": 404, "title": "Unable to find keypair mykey.", "detail": "Unable to find keypair mykey.", "links": []}]}`)
		cloud := f.connect()

		_, err := cloud.CreateCluster(t.Context(), upstreamRequest(clustertype.KindMagnum, map[string]any{"keypair": "mykey"}))

		require.Error(t, err)
		status, _ := errdef.UpstreamStatus(err)
		assert.Equal(t, http.StatusBadRequest, status)
		title, _ := errdef.Title(err)
		assert.Equal(t, "Bad Request", title)
		pointer, _ := errdef.Pointer(err)
		assert.Equal(t, "/cluster/parameters/keypair", pointer)
	})
}

const saharaCatalog = `{"cluster_templates": [
	{"id": "template-id", "name": "upstream-template", "plugin_name": "vanilla", "hadoop_version": "2.7.1"}
]}`

const saharaImages = `{"images": [{"id": "image-id", "name": "sahara-vanilla"}]}`

func TestSaharaBackend_CreateCluster(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("data-processing", "/sahara/v1.1/project")
		f.handle("GET /sahara/v1.1/project/cluster-templates", http.StatusOK, saharaCatalog)
		f.handle("GET /sahara/v1.1/project/images", http.StatusOK, saharaImages)
		requests := f.record("POST /sahara/v1.1/project/clusters", http.StatusAccepted, `{"cluster": {"id": "cluster-id", "name": "mycluster-abcd"}}`)
		cloud := f.connect()

		cluster, err := cloud.CreateCluster(t.Context(), upstreamRequest(clustertype.KindSahara, map[string]any{
			"image":        "sahara-vanilla",
			"network_id":   "net-id",
			"user_keypair": "mykey",
			"is_transient": false,
		}))

		require.NoError(t, err)
		assert.Equal(t, Cluster{ID: "cluster-id", Name: "mycluster-abcd"}, cluster)
		request := <-requests
		name, ok := request["name"].(string)
		require.True(t, ok)
		assert.Regexp(t, `^mycluster-.{4}$`, name)
		delete(request, "name")
		assert.Equal(t, map[string]any{
			"plugin_name":                "vanilla",
			"hadoop_version":             "2.7.1",
			"cluster_template_id":        "template-id",
			"default_image_id":           "image-id",
			"neutron_management_network": "net-id",
			"user_keypair_id":            "mykey",
			"is_transient":               false,
		}, request)
	})

	t.Run("UnknownImage", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("data-processing", "/sahara/v1.1/project")
		f.handle("GET /sahara/v1.1/project/cluster-templates", http.StatusOK, saharaCatalog)
		f.handle("GET /sahara/v1.1/project/images", http.StatusOK, saharaImages)
		cloud := f.connect()

		_, err := cloud.CreateCluster(t.Context(), upstreamRequest(clustertype.KindSahara, map[string]any{"image": "centos"}))

		require.Error(t, err)
		assert.EqualError(t, err, "image centos not found")
		pointer, _ := errdef.Pointer(err)
		assert.Equal(t, "/cluster/parameters/image", pointer)
	})

	t.Run("UnknownClusterTemplate", func(t *testing.T) {
		f := newFakeCloud(t)
		f.service("data-processing", "/sahara/v1.1/project")
		f.handle("GET /sahara/v1.1/project/cluster-templates", http.StatusOK, `{"cluster_templates": []}`)
		cloud := f.connect()

		_, err := cloud.CreateCluster(t.Context(), upstreamRequest(clustertype.KindSahara, map[string]any{"image": "sahara-vanilla"}))

		assert.EqualError(t, err, `sahara cluster template "upstream-template" not found`)
	})
}

func TestCloud_Assets(t *testing.T) {
	f := newFakeCloud(t)
	f.service("compute", "/nova/v2.1")
	f.service("image", "/glance")
	f.service("network", "/neutron")
	f.handle("GET /nova/v2.1/os-keypairs", http.StatusOK, `{"keypairs": [{"keypair": {"name": "mykey", "fingerprint": "ab:cd"}}]}`)
	f.handle("GET /glance/v2/images", http.StatusOK, `{"images": [{"id": "image-id", "name": "rocky-9", "status": "active"}]}`)
	f.handle("GET /neutron/v2.0/networks", http.StatusOK, `{"networks": [
		{"id": "net-1", "name": "public", "router:external": true},
		{"id": "net-2", "name": "private", "router:external": false}
	]}`)
	cloud := f.connect()

	t.Run("Keypairs", func(t *testing.T) {
		keypairs, err := cloud.ListKeypairs(t.Context())

		require.NoError(t, err)
		assert.Equal(t, []Asset{{ID: "mykey", Name: "mykey"}}, keypairs)
	})

	t.Run("Images", func(t *testing.T) {
		images, err := cloud.ListImages(t.Context())

		require.NoError(t, err)
		assert.Equal(t, []Asset{{ID: "rocky-9", Name: "rocky-9"}}, images)
	})

	t.Run("Networks", func(t *testing.T) {
		networks, err := cloud.ListNetworks(t.Context())

		require.NoError(t, err)
		assert.Equal(t, []Network{
			{ID: "public", Name: "public", External: true},
			{ID: "private", Name: "private", External: false},
		}, networks)
	})

	t.Run("WithoutSahara", func(t *testing.T) {
		plugins, err := cloud.ListSaharaPlugins(t.Context())
		require.NoError(t, err)
		assert.Empty(t, plugins)

		images, err := cloud.ListSaharaImages(t.Context())
		require.NoError(t, err)
		assert.Empty(t, images)

		templates, err := cloud.ListSaharaClusterTemplates(t.Context())
		require.NoError(t, err)
		assert.Empty(t, templates)
	})
}

func TestCloud_SaharaAssets(t *testing.T) {
	f := newFakeCloud(t)
	f.service("data-processing", "/sahara/v1.1/project")
	f.handle("GET /sahara/v1.1/project/plugins", http.StatusOK, `{"plugins": [{"name": "vanilla", "title": "Vanilla Apache Hadoop", "versions": ["2.7.1"]}]}`)
	f.handle("GET /sahara/v1.1/project/images", http.StatusOK, saharaImages)
	f.handle("GET /sahara/v1.1/project/cluster-templates", http.StatusOK, saharaCatalog)
	cloud := f.connect()

	plugins, err := cloud.ListSaharaPlugins(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []Asset{{ID: "vanilla", Name: "vanilla"}}, plugins)

	images, err := cloud.ListSaharaImages(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []Asset{{ID: "image-id", Name: "sahara-vanilla"}}, images)

	templates, err := cloud.ListSaharaClusterTemplates(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []Asset{{ID: "template-id", Name: "upstream-template"}}, templates)
}
