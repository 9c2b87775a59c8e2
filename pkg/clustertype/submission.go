package clustertype

import (
	"github.com/openflighthpc/cluster-builder/pkg/quota"
)

// Submission is what is sent to the backend to create a cluster.
type Submission struct {
	// Parameters are the final parameters of the cluster.
	Parameters map[string]any
	// Template is the composed template of heat cluster types and nil otherwise.
	Template *Template
	// Usage is the estimated quota consumed by the template.
	Usage quota.Usage
}

// PrepareSubmission validates the answers of a caller and prepares the submission of a cluster of
// the given cluster type. Answers to parameters of deselected components are dropped. Required
// parameters have to be answered. The template of heat cluster types is composed from the
// selected components and its quota usage estimated using the given flavors.
func PrepareSubmission(clusterType *ClusterType, answers Answers, selections Selections, flavors []quota.Flavor) (*Submission, error) {
	answers = FilterAnswers(clusterType, selections, answers)

	spec, isHeat := clusterType.Heat()
	required := clusterType.Parameters()
	if isHeat {
		for name := range deselectedParameters(spec, selections) {
			delete(required, name)
		}
	}
	if err := assertPresent(required, answers); err != nil {
		return nil, err
	}

	parameters := MergeParameters(clusterType, answers)
	if !isHeat {
		return &Submission{Parameters: parameters}, nil
	}

	template, err := Compose(clusterType, selections)
	if err != nil {
		return nil, err
	}
	// heat rejects parameters the template does not declare
	for name := range parameters {
		if _, ok := template.Parameters[name]; !ok {
			delete(parameters, name)
		}
	}

	return &Submission{
		Parameters: parameters,
		Template:   template,
		Usage:      quota.Estimate(parameters, template.Resources, template.Files, flavors),
	}, nil
}
