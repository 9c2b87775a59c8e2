package clustertype

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/afero"
)

const (
	routerType  = "OS::Neutron::Router"
	networkType = "OS::Neutron::Net"
)

type componentLoader struct {
	fs      afero.Fs
	fetcher Fetcher
}

// load loads the HOT fragment at path and resolves the files it references.
func (l componentLoader) load(ctx context.Context, path, name string, optional bool) (*Component, error) {
	data, lastModified, err := readFile(l.fs, path)
	if err != nil {
		return nil, err
	}

	node, err := documentNode(data)
	if err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	if err := allowKeys(node, componentKeys); err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	var definition componentDefinition
	if err := decode(node, &definition); err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	if err := checkResources(definition.Resources); err != nil {
		return nil, newLoadError(path, "%v", err)
	}

	resolver := newReferenceResolver(l.fs, l.fetcher)
	from := fileScheme + path
	resources, err := resolver.resolveMap(ctx, definition.Resources, from)
	if err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	outputs, err := resolver.resolveMap(ctx, definition.Outputs, from)
	if err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	conditions, err := resolver.resolveMap(ctx, definition.Conditions, from)
	if err != nil {
		return nil, newLoadError(path, "%v", err)
	}

	parameters := definition.Parameters
	if parameters == nil {
		parameters = map[string]Parameter{}
	}

	return &Component{
		Name:                name,
		Path:                path,
		IsOptional:          optional,
		HeatTemplateVersion: definition.HeatTemplateVersion,
		Parameters:          parameters,
		Resources:           resources,
		Outputs:             outputs,
		Conditions:          conditions,
		Files:               resolver.files,
		LastModified:        lastModified,
	}, nil
}

// checkResources ensures every resource is a mapping naming its type.
func checkResources(resources map[string]any) error {
	for _, id := range sortedKeys(resources) {
		resource, ok := resources[id].(map[string]any)
		if !ok {
			return fmt.Errorf("resource %q must be a mapping", id)
		}
		if _, ok := resource["type"].(string); !ok {
			return fmt.Errorf("resource %q: 'type' is a required property", id)
		}
	}
	return nil
}

// resourceType returns the type of the given resource or an empty string.
func resourceType(resource any) string {
	m, ok := resource.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := m["type"].(string)
	return t
}

// readFile reads the file at path. A missing file is a LoadError.
func readFile(afs afero.Fs, path string) ([]byte, time.Time, error) {
	info, err := afs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, newLoadError(path, "file not found")
		}
		return nil, time.Time{}, fmt.Errorf("failed to stat %q: %v", path, err)
	}

	data, err := afero.ReadFile(afs, path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read %q: %v", path, err)
	}
	return data, info.ModTime(), nil
}
