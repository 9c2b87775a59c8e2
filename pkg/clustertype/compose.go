package clustertype

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// Template is a HOT template composed from the components of a heat cluster type.
type Template struct {
	HeatTemplateVersion string               `yaml:"heat_template_version"`
	Parameters          map[string]Parameter `yaml:"parameters"`
	Resources           map[string]any       `yaml:"resources"`
	Conditions          map[string]any       `yaml:"conditions,omitempty"`
	Outputs             map[string]any       `yaml:"outputs,omitempty"`
	// Files holds the files referenced by the template keyed by reference.
	Files map[string]string `yaml:"-"`
}

// YAML returns the template document as sent to heat.
func (t *Template) YAML() (string, error) {
	out, err := yaml.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal template: %v", err)
	}
	return string(out), nil
}

// Selections names the optional components a caller selected.
type Selections map[string]bool

func (s Selections) includes(component *Component) bool {
	return !component.IsOptional || s[component.Name]
}

// Compose composes a template from the mandatory components and the selected optional
// components of the cluster type, in the order they are declared. Components have to agree on
// their heat_template_version and must not define the same resource, output or condition.
// Parameters are taken from the parameters file first, then from the components. The first
// declaration of a parameter wins.
func Compose(clusterType *ClusterType, selections Selections) (*Template, error) {
	spec, ok := clusterType.Heat()
	if !ok {
		return nil, fmt.Errorf("cluster type %q of kind %q cannot be composed", clusterType.ID, clusterType.Kind)
	}

	template := &Template{
		Parameters: make(map[string]Parameter),
		Resources:  make(map[string]any),
		Conditions: make(map[string]any),
		Outputs:    make(map[string]any),
		Files:      make(map[string]string),
	}
	var versions []string
	componentParameters := make(map[string]Parameter)
	for _, component := range spec.Components {
		if !selections.includes(component) {
			continue
		}

		if !slices.Contains(versions, component.HeatTemplateVersion) {
			versions = append(versions, component.HeatTemplateVersion)
		}
		if err := union("resources", template.Resources, component.Resources); err != nil {
			return nil, err
		}
		if err := union("outputs", template.Outputs, component.Outputs); err != nil {
			return nil, err
		}
		if err := union("conditions", template.Conditions, component.Conditions); err != nil {
			return nil, err
		}
		claim(componentParameters, component.Parameters)
		maps.Copy(template.Files, component.Files)
	}

	if len(versions) == 0 {
		return nil, errdef.NewConflict("%w", &NoComponentsError{ID: clusterType.ID})
	}
	if len(versions) > 1 {
		return nil, errdef.NewConflict("%w", &TemplateVersionError{Versions: versions})
	}
	template.HeatTemplateVersion = versions[0]

	deselected := deselectedParameters(spec, selections)
	if spec.ParametersFile != nil {
		for name, parameter := range spec.ParametersFile.Parameters {
			if !deselected[name] {
				template.Parameters[name] = parameter
			}
		}
	}
	claim(template.Parameters, componentParameters)

	return template, nil
}

// union adds every entry of src to dst. An identifier already in dst is an error.
func union(section string, dst, src map[string]any) error {
	for _, id := range sortedKeys(src) {
		if _, ok := dst[id]; ok {
			return errdef.NewConflict("%w", &DuplicateIdentifierError{Section: section, Identifier: id})
		}
		dst[id] = src[id]
	}
	return nil
}

// deselectedParameters returns the names of parameters declared by at least one deselected
// optional component and by no included component.
func deselectedParameters(spec *HeatSpec, selections Selections) map[string]bool {
	included := make(map[string]bool)
	deselected := make(map[string]bool)
	for _, component := range spec.Components {
		target := deselected
		if selections.includes(component) {
			target = included
		}
		for name := range component.Parameters {
			target[name] = true
		}
	}
	for name := range included {
		delete(deselected, name)
	}
	return deselected
}
