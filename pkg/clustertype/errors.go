package clustertype

import (
	"fmt"
	"strings"
)

// compositionErrorTitle names errors in composing a HOT template from the components of a cluster
// type.
const compositionErrorTitle = "TemplateCompositionError"

// LoadError is a problem with the content of a catalogue file. The cluster type owning the file
// is not loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s failed: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(path string, format string, a ...any) *LoadError {
	return &LoadError{Path: path, Err: fmt.Errorf(format, a...)}
}

// NetworkNotFoundError is returned for heat cluster types whose components do not define a
// private network. Clusters are never created on the public network.
type NetworkNotFoundError struct {
	ID             string
	MissingRouter  bool
	MissingNetwork bool
}

func (e *NetworkNotFoundError) Error() string {
	var missing []string
	if e.MissingRouter {
		missing = append(missing, routerType)
	}
	if e.MissingNetwork {
		missing = append(missing, networkType)
	}
	return fmt.Sprintf("cluster type %q: network or router resource not found (missing %s)", e.ID, strings.Join(missing, ", "))
}

type TemplateVersionError struct {
	Versions []string
}

func (e *TemplateVersionError) Error() string {
	return fmt.Sprintf("incompatible heat template versions: %s", strings.Join(e.Versions, ", "))
}

func (e *TemplateVersionError) Title() string { return compositionErrorTitle }

type NoComponentsError struct {
	ID string
}

func (e *NoComponentsError) Error() string {
	return fmt.Sprintf("cluster type %q: no components selected", e.ID)
}

func (e *NoComponentsError) Title() string { return compositionErrorTitle }

// DuplicateIdentifierError is returned if two included components define the same resource,
// output or condition.
type DuplicateIdentifierError struct {
	Section    string
	Identifier string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate %s identifier %q", strings.TrimSuffix(e.Section, "s"), e.Identifier)
}

func (e *DuplicateIdentifierError) Title() string { return compositionErrorTitle }

// MissingParametersError lists every parameter lacking both a default and an answer.
type MissingParametersError struct {
	Names []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("Missing parameters: %s", strings.Join(e.Names, ", "))
}
