package openstack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gophercloud/gophercloud/v2"
)

const dataProcessingService = "data-processing"

// SaharaBackend launches clusters from a sahara cluster template.
type SaharaBackend struct {
	logger *slog.Logger
	cloud  *Cloud
}

type saharaClusterTemplate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PluginName    string `json:"plugin_name"`
	PluginVersion string `json:"plugin_version"`
	HadoopVersion string `json:"hadoop_version"`
}

type saharaImage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type saharaPlugin struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (b SaharaBackend) CreateCluster(ctx context.Context, request ClusterRequest) (Cluster, error) {
	spec, ok := request.ClusterType.Upstream()
	if !ok {
		return Cluster{}, fmt.Errorf("cluster type %q has no upstream template", request.ClusterType.ID)
	}

	client, err := b.cloud.dataProcessing()
	if err != nil {
		return Cluster{}, err
	}

	b.logger.DebugContext(ctx, "Getting sahara cluster template", "clusterTemplate", spec.UpstreamTemplate)
	template, err := findClusterTemplate(ctx, client, spec.UpstreamTemplate)
	if err != nil {
		return Cluster{}, err
	}

	parameters := make(map[string]any, len(request.Submission.Parameters))
	for name, value := range request.Submission.Parameters {
		parameters[name] = value
	}

	var imageName string
	if image := pop(parameters, "image"); image != nil {
		imageName = fmt.Sprint(image)
	}
	b.logger.DebugContext(ctx, "Getting sahara image", "image", imageName)
	imageID, err := findImage(ctx, client, imageName, request.Answers)
	if err != nil {
		return Cluster{}, err
	}

	name := fmt.Sprintf("%s-%s", request.Name, uuid.NewString()[:4])
	body := map[string]any{
		"name":                name,
		"plugin_name":         template.PluginName,
		"cluster_template_id": template.ID,
		"default_image_id":    imageID,
	}
	if template.PluginVersion != "" {
		body["plugin_version"] = template.PluginVersion
	} else {
		body["hadoop_version"] = template.HadoopVersion
	}
	if networkID, ok := parameters["network_id"]; ok {
		delete(parameters, "network_id")
		body["neutron_management_network"] = networkID
	}
	if keypair, ok := parameters["user_keypair"]; ok {
		delete(parameters, "user_keypair")
		body["user_keypair_id"] = keypair
	}
	for key, value := range parameters {
		body[key] = value
	}

	b.logger.InfoContext(ctx, "Creating sahara cluster", "cluster", name, "clusterType", request.ClusterType.ID)
	var response struct {
		Cluster Cluster `json:"cluster"`
	}
	_, err = client.Post(ctx, client.ServiceURL("clusters"), body, &response, &gophercloud.RequestOpts{
		OkCodes: []int{202},
	})
	if err != nil {
		return Cluster{}, saharaError(err, request.Answers)
	}

	return response.Cluster, nil
}

func findClusterTemplate(ctx context.Context, client *gophercloud.ServiceClient, nameOrID string) (saharaClusterTemplate, error) {
	templates, err := listClusterTemplates(ctx, client)
	if err != nil {
		return saharaClusterTemplate{}, err
	}
	for _, template := range templates {
		if template.ID == nameOrID || template.Name == nameOrID {
			return template, nil
		}
	}
	return saharaClusterTemplate{}, fmt.Errorf("sahara cluster template %q not found", nameOrID)
}

func findImage(ctx context.Context, client *gophercloud.ServiceClient, nameOrID string, answers map[string]any) (string, error) {
	images, err := listSaharaImages(ctx, client)
	if err != nil {
		return "", err
	}
	for _, image := range images {
		if image.ID == nameOrID || image.Name == nameOrID {
			return image.ID, nil
		}
	}
	// sahara answers with "No matches found." which does not tell the image was the problem
	return "", badParameter(fmt.Sprintf("image %s not found", nameOrID), nameOrID, answers)
}

func listClusterTemplates(ctx context.Context, client *gophercloud.ServiceClient) ([]saharaClusterTemplate, error) {
	var response struct {
		ClusterTemplates []saharaClusterTemplate `json:"cluster_templates"`
	}
	_, err := client.Get(ctx, client.ServiceURL("cluster-templates"), &response, nil)
	if err != nil {
		return nil, saharaError(err, nil)
	}
	return response.ClusterTemplates, nil
}

func listSaharaImages(ctx context.Context, client *gophercloud.ServiceClient) ([]saharaImage, error) {
	var response struct {
		Images []saharaImage `json:"images"`
	}
	_, err := client.Get(ctx, client.ServiceURL("images"), &response, nil)
	if err != nil {
		return nil, saharaError(err, nil)
	}
	return response.Images, nil
}

func listPlugins(ctx context.Context, client *gophercloud.ServiceClient) ([]saharaPlugin, error) {
	var response struct {
		Plugins []saharaPlugin `json:"plugins"`
	}
	_, err := client.Get(ctx, client.ServiceURL("plugins"), &response, nil)
	if err != nil {
		return nil, saharaError(err, nil)
	}
	return response.Plugins, nil
}

func pop(m map[string]any, key string) any {
	value := m[key]
	delete(m, key)
	return value
}
