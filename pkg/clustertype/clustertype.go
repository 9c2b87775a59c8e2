// Package clustertype loads the cluster type catalogue and prepares cluster submissions from it.
//
// A cluster type is a directory below the catalogue root holding a cluster-type.yaml. Heat based
// cluster types additionally hold a parameters.yaml and the HOT fragments of their components in
// components/<name>.yaml. Everything is read from the catalogue on every call so edits are visible
// on the next request.
package clustertype

import (
	"fmt"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindHeat   Kind = "heat"
	KindMagnum Kind = "magnum"
	KindSahara Kind = "sahara"
)

// ClusterType is a validated cluster type definition. Spec holds the kind specific part.
type ClusterType struct {
	ID                  string
	Path                string
	Title               string
	Description         string
	Kind                Kind
	Order               int
	LogoURL             string
	Instructions        []Instruction
	ParameterGroups     []ParameterGroup
	HardcodedParameters map[string]string
	LastModified        time.Time
	Spec                Spec
}

// Spec is either an *UpstreamSpec or a *HeatSpec.
type Spec interface {
	spec()
}

// UpstreamSpec is the payload of cluster types launched from a template managed by the backend
// itself (magnum and sahara).
type UpstreamSpec struct {
	UpstreamTemplate string
	Parameters       map[string]Parameter
}

func (*UpstreamSpec) spec() {}

// HeatSpec is the payload of cluster types composed from HOT fragments.
type HeatSpec struct {
	Components     []*Component
	ParametersFile *ParametersFile
}

func (*HeatSpec) spec() {}

type Instruction struct {
	ID    string `yaml:"id" json:"id" validate:"required"`
	Title string `yaml:"title" json:"title" validate:"required"`
	Text  string `yaml:"text" json:"text" validate:"required"`
}

type ParameterGroup struct {
	Label       string   `yaml:"label,omitempty" json:"label,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  []string `yaml:"parameters" json:"parameters"`
}

var parameterKeys = []string{"type", "label", "description", "default", "hidden", "constraints", "immutable", "tags"}

// Parameter is the schema of a single parameter. It is the shape of a HOT parameter.
type Parameter struct {
	Type        string `yaml:"type" json:"type" validate:"required,oneof=string number json comma_delimited_list boolean"`
	Label       string `yaml:"label,omitempty" json:"label,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
	Hidden      bool   `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Constraints []any  `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Immutable   bool   `yaml:"immutable,omitempty" json:"immutable,omitempty"`
	Tags        any    `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// UnmarshalYAML rejects keys a HOT parameter cannot have.
func (p *Parameter) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameter must be a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		if !slices.Contains(parameterKeys, key.Value) {
			return fmt.Errorf("line %d: additional property %q is not allowed", key.Line, key.Value)
		}
	}

	type plain Parameter
	return node.Decode((*plain)(p))
}

// ParametersFile is the parameters.yaml shared by all components of a heat cluster type.
type ParametersFile struct {
	Path            string
	Parameters      map[string]Parameter
	ParameterGroups []ParameterGroup
	LastModified    time.Time
}

// Component is a single HOT fragment of a heat cluster type.
type Component struct {
	Name                string
	Path                string
	IsOptional          bool
	HeatTemplateVersion string
	Parameters          map[string]Parameter
	Resources           map[string]any
	Outputs             map[string]any
	Conditions          map[string]any
	// Files holds the contents of every file referenced by the fragment, keyed by the reference
	// as it appears in the rewritten fragment.
	Files        map[string]string
	LastModified time.Time
}

// declaredParameters returns every parameter the cluster type declares, hardcoded ones included.
// The parameters file of a heat cluster type takes precedence over its components. Earlier
// components take precedence over later ones.
func (ct *ClusterType) declaredParameters() map[string]Parameter {
	switch spec := ct.Spec.(type) {
	case *UpstreamSpec:
		return maps.Clone(spec.Parameters)
	case *HeatSpec:
		parameters := make(map[string]Parameter)
		if spec.ParametersFile != nil {
			maps.Copy(parameters, spec.ParametersFile.Parameters)
		}
		for _, component := range spec.Components {
			claim(parameters, component.Parameters)
		}
		return parameters
	default:
		return map[string]Parameter{}
	}
}

// Parameters returns the parameters callers can answer. Hardcoded parameters are never part of
// it.
func (ct *ClusterType) Parameters() map[string]Parameter {
	parameters := ct.declaredParameters()
	for name := range ct.HardcodedParameters {
		delete(parameters, name)
	}
	return parameters
}

// Heat returns the heat payload of the cluster type.
func (ct *ClusterType) Heat() (*HeatSpec, bool) {
	spec, ok := ct.Spec.(*HeatSpec)
	return spec, ok
}

// Upstream returns the magnum or sahara payload of the cluster type.
func (ct *ClusterType) Upstream() (*UpstreamSpec, bool) {
	spec, ok := ct.Spec.(*UpstreamSpec)
	return spec, ok
}

// claim copies every parameter of src into dst unless dst already has a parameter of that name.
func claim(dst, src map[string]Parameter) {
	for name, parameter := range src {
		if _, ok := dst[name]; !ok {
			dst[name] = parameter
		}
	}
}
