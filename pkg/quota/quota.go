// Package quota estimates the resources a HOT template consumes and checks them against the
// limits of an OpenStack project.
package quota

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	novaServer    = "OS::Nova::Server"
	cinderVolume  = "OS::Cinder::Volume"
	resourceGroup = "OS::Heat::ResourceGroup"
)

// maxDepth bounds the nesting of templates within templates.
const maxDepth = 10

// Flavor is a hardware profile of instances. RAM is given in MB and disk in GB.
type Flavor struct {
	Name  string `json:"name"`
	RAM   int    `json:"ram"`
	VCPUs int    `json:"vcpus"`
	Disk  int    `json:"disk"`
}

// Usage is the amount of quota consumed. RAM is given in MB and volume disk in GB.
type Usage struct {
	Instances  int `json:"instances"`
	Volumes    int `json:"volumes"`
	VCPUs      int `json:"vcpus"`
	RAM        int `json:"ram"`
	VolumeDisk int `json:"volume_disk"`
}

func (u Usage) add(o Usage) Usage {
	return Usage{
		Instances:  sum(u.Instances, o.Instances),
		Volumes:    sum(u.Volumes, o.Volumes),
		VCPUs:      sum(u.VCPUs, o.VCPUs),
		RAM:        sum(u.RAM, o.RAM),
		VolumeDisk: sum(u.VolumeDisk, o.VolumeDisk),
	}
}

func sum(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// scale multiplies u by n, saturating at math.MaxInt. A negative n scales to nothing.
func (u Usage) scale(n int) Usage {
	return Usage{
		Instances:  multiply(u.Instances, n),
		Volumes:    multiply(u.Volumes, n),
		VCPUs:      multiply(u.VCPUs, n),
		RAM:        multiply(u.RAM, n),
		VolumeDisk: multiply(u.VolumeDisk, n),
	}
}

func multiply(a, n int) int {
	if a <= 0 || n <= 0 {
		return 0
	}
	if a > math.MaxInt/n {
		return math.MaxInt
	}
	return a * n
}

// Estimate sums the quota consumed by the given resources of a template. Parameters are the
// final parameters of the template. Files holds the templates referenced by resource types.
//
// Servers consume an instance and the RAM and vCPUs of their flavor. Volumes consume a volume and
// their size. Resource groups consume what their resource definition consumes times their
// count. Resources of any other type consume nothing.
func Estimate(parameters map[string]any, resources map[string]any, files map[string]string, flavors []Flavor) Usage {
	e := &estimator{
		files:     files,
		flavors:   make(map[string]Flavor, len(flavors)),
		templates: make(map[string]map[string]any),
	}
	for _, flavor := range flavors {
		e.flavors[flavor.Name] = flavor
	}
	return e.resources(parameters, resources, 0)
}

type estimator struct {
	files     map[string]string
	flavors   map[string]Flavor
	templates map[string]map[string]any
}

func (e *estimator) resources(parameters, resources map[string]any, depth int) Usage {
	var usage Usage
	for _, resource := range resources {
		r, ok := resource.(map[string]any)
		if !ok {
			continue
		}
		resourceType, _ := r["type"].(string)
		properties, _ := r["properties"].(map[string]any)
		usage = usage.add(e.resource(parameters, resourceType, properties, depth))
	}
	return usage
}

func (e *estimator) resource(parameters map[string]any, resourceType string, properties map[string]any, depth int) Usage {
	switch resourceType {
	case novaServer:
		usage := Usage{Instances: 1}
		if name, ok := resolveString(properties["flavor"], parameters); ok {
			if flavor, ok := e.flavors[name]; ok {
				usage.RAM = flavor.RAM
				usage.VCPUs = flavor.VCPUs
			}
		}
		return usage
	case cinderVolume:
		usage := Usage{Volumes: 1}
		if size, ok := resolveInt(properties["size"], parameters); ok {
			usage.VolumeDisk = max(size, 0)
		}
		return usage
	case resourceGroup:
		count, ok := resolveInt(properties["count"], parameters)
		if !ok {
			count = 1
		}
		// a group never has fewer than zero members
		count = max(count, 0)
		definition, _ := properties["resource_def"].(map[string]any)
		definitionType, _ := definition["type"].(string)
		definitionProperties, _ := definition["properties"].(map[string]any)
		return e.resource(parameters, definitionType, definitionProperties, depth).scale(count)
	default:
		if template, ok := e.template(resourceType); ok && depth < maxDepth {
			nestedParameters := templateParameters(template, properties, parameters)
			nestedResources, _ := template["resources"].(map[string]any)
			return e.resources(nestedParameters, nestedResources, depth+1)
		}
		// resources of unknown types consume nothing
		return Usage{}
	}
}

// template returns the parsed template referenced by ref if it is one of the files.
func (e *estimator) template(ref string) (map[string]any, bool) {
	if template, ok := e.templates[ref]; ok {
		return template, template != nil
	}
	content, ok := e.files[ref]
	if !ok {
		return nil, false
	}

	var template map[string]any
	if err := yaml.Unmarshal([]byte(content), &template); err != nil {
		template = nil
	}
	e.templates[ref] = template
	return template, template != nil
}

// templateParameters returns the parameters of a nested template. Each parameter takes the value
// of the property of the same name, resolved in the outer template, then its default.
func templateParameters(template, properties, outer map[string]any) map[string]any {
	declared, _ := template["parameters"].(map[string]any)
	parameters := make(map[string]any, len(declared))
	for name, declaration := range declared {
		if value, ok := properties[name]; ok {
			parameters[name] = resolve(value, outer)
			continue
		}
		if d, ok := declaration.(map[string]any); ok {
			if value, ok := d["default"]; ok {
				parameters[name] = value
			}
		}
	}
	return parameters
}

// resolve resolves a get_param intrinsic through parameters. Any other value is returned as is.
func resolve(value any, parameters map[string]any) any {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return value
	}
	switch name := m["get_param"].(type) {
	case string:
		return parameters[name]
	case []any:
		if len(name) > 0 {
			if n, ok := name[0].(string); ok {
				return parameters[n]
			}
		}
	}
	return value
}

func resolveString(value any, parameters map[string]any) (string, bool) {
	switch v := resolve(value, parameters).(type) {
	case string:
		return v, true
	case int, int64, uint64, float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}

func resolveInt(value any, parameters map[string]any) (int, bool) {
	switch v := resolve(value, parameters).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return math.MaxInt, true
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
