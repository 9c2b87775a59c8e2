package clustertype

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// definition holds the fields every cluster type definition has. It decides which factory
// continues loading.
type definition struct {
	Title       *string `yaml:"title" validate:"required"`
	Description *string `yaml:"description" validate:"required"`
	Kind        Kind    `yaml:"kind" validate:"required,oneof=heat magnum sahara"`
}

// presentation holds the optional fields shared by all kinds.
type presentation struct {
	Instructions        []Instruction     `yaml:"instructions" validate:"dive"`
	ParameterGroups     []ParameterGroup  `yaml:"parameter_groups"`
	HardcodedParameters map[string]string `yaml:"hardcoded_parameters"`
}

type heatDefinition struct {
	definition   `yaml:",inline"`
	presentation `yaml:",inline"`
	Order        int              `yaml:"order"`
	LogoURL      string           `yaml:"logo_url"`
	Components   []componentEntry `yaml:"components" validate:"required,dive"`
}

var heatDefinitionKeys = []string{
	"title", "description", "kind", "components", "hardcoded_parameters", "parameter_groups",
	"order", "logo_url", "instructions",
}

type componentEntry struct {
	Name     string `yaml:"name" validate:"required"`
	Optional bool   `yaml:"optional"`
}

type upstreamDefinition struct {
	definition   `yaml:",inline"`
	presentation `yaml:",inline"`
	Order        *int                 `yaml:"order" validate:"required"`
	LogoURL      *string              `yaml:"logo_url" validate:"required"`
	Parameters   map[string]Parameter `yaml:"parameters" validate:"required,dive"`
}

type magnumDefinition struct {
	upstreamDefinition `yaml:",inline"`
	Template           string `yaml:"magnum_cluster_template" validate:"required"`
}

type saharaDefinition struct {
	upstreamDefinition `yaml:",inline"`
	Template           string `yaml:"sahara_cluster_template" validate:"required"`
}

type parametersFileDefinition struct {
	Parameters      map[string]Parameter `yaml:"parameters" validate:"dive"`
	ParameterGroups []ParameterGroup     `yaml:"parameter_groups"`
}

type componentDefinition struct {
	HeatTemplateVersion string               `yaml:"heat_template_version" validate:"required"`
	Description         string               `yaml:"description"`
	Parameters          map[string]Parameter `yaml:"parameters" validate:"dive"`
	ParameterGroups     []any                `yaml:"parameter_groups"`
	Resources           map[string]any       `yaml:"resources"`
	Outputs             map[string]any       `yaml:"outputs"`
	Conditions          map[string]any       `yaml:"conditions"`
}

var componentKeys = []string{
	"heat_template_version", "description", "parameters", "resources", "outputs", "conditions",
	"parameter_groups",
}

// decode decodes the document node into out and validates the result.
func decode(node *yaml.Node, out any) error {
	if err := node.Decode(out); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		return schemaError(err)
	}
	return nil
}

// allowKeys returns an error naming the first key of the mapping node not in allowed.
func allowKeys(node *yaml.Node, allowed []string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("document must be a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if key == "parameters" && !slices.Contains(allowed, key) {
			return fmt.Errorf("parameters must be defined in %s, not inline", parametersFileName)
		}
		if !slices.Contains(allowed, key) {
			return fmt.Errorf("additional property %q is not allowed", key)
		}
	}
	return nil
}

// schemaError reports the first field error in a readable form.
func schemaError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}
	return errors.New(formatFieldError(validationErrors[0]))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	// keep the element of a list or map the field belongs to
	segments := strings.Split(e.Namespace(), ".")
	if len(segments) > 2 && strings.Contains(segments[len(segments)-2], "[") {
		field = segments[len(segments)-2] + "." + field
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is a required property", field)
	case "oneof":
		return fmt.Sprintf("'%s' must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("'%s' failed validation (%s)", field, e.Tag())
	}
}

var errEmptyDocument = errors.New("document is empty")

// documentNode returns the top level node of a parsed YAML document.
func documentNode(data []byte) (*yaml.Node, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 {
		return nil, errEmptyDocument
	}
	node := document.Content[0]
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, errEmptyDocument
	}
	return node, nil
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
