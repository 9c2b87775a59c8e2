package clustertype

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	definitionFileName = "cluster-type.yaml"
	parametersFileName = "parameters.yaml"
	componentsDirName  = "components"
)

// factory continues loading a cluster type once its kind is known. Validation problems are
// returned as *LoadError or *NetworkNotFoundError, other errors signal problems reading the
// catalogue.
type factory interface {
	load(ctx context.Context, id, path string, node *yaml.Node, lastModified time.Time) (*ClusterType, error)
}

func newClusterType(id, path string, definition definition, presentation presentation, lastModified time.Time) *ClusterType {
	hardcoded := presentation.HardcodedParameters
	if hardcoded == nil {
		hardcoded = map[string]string{}
	}
	groups := presentation.ParameterGroups
	if groups == nil {
		groups = []ParameterGroup{}
	}
	instructions := presentation.Instructions
	if instructions == nil {
		instructions = []Instruction{}
	}

	return &ClusterType{
		ID:                  id,
		Path:                path,
		Title:               *definition.Title,
		Description:         *definition.Description,
		Kind:                definition.Kind,
		Instructions:        instructions,
		ParameterGroups:     groups,
		HardcodedParameters: hardcoded,
		LastModified:        lastModified,
	}
}

// upstreamFactory loads magnum and sahara cluster types. Their parameters are taken verbatim from
// the definition.
type upstreamFactory struct {
	kind Kind
}

func (f upstreamFactory) load(_ context.Context, id, path string, node *yaml.Node, lastModified time.Time) (*ClusterType, error) {
	var definition upstreamDefinition
	var template string
	switch f.kind {
	case KindMagnum:
		var magnum magnumDefinition
		if err := decode(node, &magnum); err != nil {
			return nil, newLoadError(path, "%v", err)
		}
		definition, template = magnum.upstreamDefinition, magnum.Template
	case KindSahara:
		var sahara saharaDefinition
		if err := decode(node, &sahara); err != nil {
			return nil, newLoadError(path, "%v", err)
		}
		definition, template = sahara.upstreamDefinition, sahara.Template
	default:
		return nil, fmt.Errorf("kind %q is not an upstream kind", f.kind)
	}

	clusterType := newClusterType(id, path, definition.definition, definition.presentation, lastModified)
	clusterType.Order = *definition.Order
	clusterType.LogoURL = *definition.LogoURL
	clusterType.Spec = &UpstreamSpec{
		UpstreamTemplate: template,
		Parameters:       definition.Parameters,
	}
	return clusterType, nil
}

// heatFactory loads heat cluster types from their definition, parameters file and components.
type heatFactory struct {
	fs         afero.Fs
	components componentLoader
}

func (f heatFactory) load(ctx context.Context, id, path string, node *yaml.Node, lastModified time.Time) (*ClusterType, error) {
	if err := allowKeys(node, heatDefinitionKeys); err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	var definition heatDefinition
	if err := decode(node, &definition); err != nil {
		return nil, newLoadError(path, "%v", err)
	}

	dir := filepath.Dir(path)
	parametersFile, err := f.loadParametersFile(filepath.Join(dir, parametersFileName))
	if err != nil {
		return nil, err
	}

	components := make([]*Component, 0, len(definition.Components))
	seen := make(map[string]bool, len(definition.Components))
	for _, entry := range definition.Components {
		if filepath.Base(entry.Name) != entry.Name || entry.Name == ".." {
			return nil, newLoadError(path, "invalid component name %q", entry.Name)
		}
		if seen[entry.Name] {
			return nil, newLoadError(path, "duplicate component %q", entry.Name)
		}
		seen[entry.Name] = true

		componentPath := filepath.Join(dir, componentsDirName, entry.Name+".yaml")
		component, err := f.components.load(ctx, componentPath, entry.Name, entry.Optional)
		if err != nil {
			return nil, err
		}
		components = append(components, component)
	}

	if err := checkNetwork(id, components); err != nil {
		return nil, err
	}

	clusterType := newClusterType(id, path, definition.definition, definition.presentation, lastModified)
	clusterType.Order = definition.Order
	clusterType.LogoURL = definition.LogoURL
	clusterType.ParameterGroups = append(clusterType.ParameterGroups, parametersFile.ParameterGroups...)
	clusterType.Spec = &HeatSpec{
		Components:     components,
		ParametersFile: parametersFile,
	}
	if parametersFile.LastModified.After(clusterType.LastModified) {
		clusterType.LastModified = parametersFile.LastModified
	}
	for _, component := range components {
		if component.LastModified.After(clusterType.LastModified) {
			clusterType.LastModified = component.LastModified
		}
	}
	return clusterType, nil
}

func (f heatFactory) loadParametersFile(path string) (*ParametersFile, error) {
	data, lastModified, err := readFile(f.fs, path)
	if err != nil {
		return nil, err
	}

	parametersFile := &ParametersFile{
		Path:            path,
		Parameters:      map[string]Parameter{},
		ParameterGroups: []ParameterGroup{},
		LastModified:    lastModified,
	}

	node, err := documentNode(data)
	if errors.Is(err, errEmptyDocument) {
		return parametersFile, nil
	}
	if err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	var definition parametersFileDefinition
	if err := decode(node, &definition); err != nil {
		return nil, newLoadError(path, "%v", err)
	}

	if definition.Parameters != nil {
		parametersFile.Parameters = definition.Parameters
	}
	if definition.ParameterGroups != nil {
		parametersFile.ParameterGroups = definition.ParameterGroups
	}
	return parametersFile, nil
}

// checkNetwork ensures the components, optional ones included, define a router and a network.
func checkNetwork(id string, components []*Component) error {
	var foundRouter, foundNetwork bool
	for _, component := range components {
		for _, resource := range component.Resources {
			switch resourceType(resource) {
			case routerType:
				foundRouter = true
			case networkType:
				foundNetwork = true
			}
		}
	}

	if !foundRouter || !foundNetwork {
		return &NetworkNotFoundError{ID: id, MissingRouter: !foundRouter, MissingNetwork: !foundNetwork}
	}
	return nil
}
