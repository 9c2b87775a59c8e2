package clustertype

import (
	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// Answers are the parameter values given by a caller keyed by parameter name.
type Answers map[string]any

// MergeParameters returns the parameters sent to the backend. A parameter takes the caller's
// answer unless it is nil, then its default. Hardcoded parameters always take their hardcoded
// value.
func MergeParameters(clusterType *ClusterType, answers Answers) map[string]any {
	merged := make(map[string]any)
	for name, parameter := range clusterType.Parameters() {
		if answer := answers[name]; answer != nil {
			merged[name] = answer
		} else if parameter.Default != nil {
			merged[name] = parameter.Default
		}
	}
	for name, value := range clusterType.HardcodedParameters {
		merged[name] = value
	}
	return merged
}

// FilterAnswers drops the answers to parameters only declared by deselected optional components.
func FilterAnswers(clusterType *ClusterType, selections Selections, answers Answers) Answers {
	filtered := make(Answers, len(answers))
	spec, ok := clusterType.Heat()
	if !ok {
		for name, answer := range answers {
			filtered[name] = answer
		}
		return filtered
	}

	deselected := deselectedParameters(spec, selections)
	for name, answer := range answers {
		if !deselected[name] {
			filtered[name] = answer
		}
	}
	return filtered
}

// AssertParametersPresent returns a MissingParametersError naming every parameter that has
// neither a default nor an answer.
func AssertParametersPresent(clusterType *ClusterType, answers Answers) error {
	return assertPresent(clusterType.Parameters(), answers)
}

func assertPresent(parameters map[string]Parameter, answers Answers) error {
	var missing []string
	for _, name := range sortedKeys(parameters) {
		if parameters[name].Default != nil || answers[name] != nil {
			continue
		}
		missing = append(missing, name)
	}

	if len(missing) > 0 {
		return errdef.NewBadRequest("%w", &MissingParametersError{Names: missing})
	}
	return nil
}
