package quota

import (
	"fmt"
	"strings"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// Unlimited is the total allowed of a dimension without limit.
const Unlimited = -1

const (
	DimensionInstances  = "instances"
	DimensionVCPUs      = "vcpus"
	DimensionRAM        = "ram"
	DimensionVolumes    = "volumes"
	DimensionVolumeDisk = "volume_disk"
)

var dimensions = []string{DimensionInstances, DimensionVCPUs, DimensionRAM, DimensionVolumes, DimensionVolumeDisk}

// Limit is the limit of a project in a single dimension.
type Limit struct {
	TotalAllowed int    `json:"total_allowed"`
	Used         int    `json:"used"`
	Units        string `json:"units"`
}

func (l Limit) Unlimited() bool {
	return l.TotalAllowed == Unlimited
}

func (l Limit) Remaining() int {
	return l.TotalAllowed - l.Used
}

// Limits are the limits of a project keyed by dimension.
type Limits map[string]Limit

func (u Usage) get(dimension string) int {
	switch dimension {
	case DimensionInstances:
		return u.Instances
	case DimensionVCPUs:
		return u.VCPUs
	case DimensionRAM:
		return u.RAM
	case DimensionVolumes:
		return u.Volumes
	case DimensionVolumeDisk:
		return u.VolumeDisk
	default:
		return 0
	}
}

// Violation is a dimension in which the usage exceeds the remaining quota.
type Violation struct {
	Dimension string
	Required  int
	Remaining int
	Units     string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: requires %d%s but only %d%s remaining", v.Dimension, v.Required, v.Units, v.Remaining, v.Units)
}

// LimitExceededError lists every dimension in which the usage exceeds the remaining quota.
type LimitExceededError struct {
	Violations []Violation
}

func (e *LimitExceededError) Error() string {
	violations := make([]string, len(e.Violations))
	for i, violation := range e.Violations {
		violations[i] = violation.String()
	}
	return fmt.Sprintf("Creating this cluster would exceed the project limits. %s", strings.Join(violations, "; "))
}

func (e *LimitExceededError) Title() string { return "ProjectLimitError" }

// CheckLimits checks the usage against the remaining quota of every dimension. Dimensions without
// limit or not reported are not checked.
func CheckLimits(usage Usage, limits Limits) error {
	var violations []Violation
	for _, dimension := range dimensions {
		limit, ok := limits[dimension]
		if !ok || limit.Unlimited() {
			continue
		}

		required := usage.get(dimension)
		if required > limit.Remaining() {
			violations = append(violations, Violation{
				Dimension: dimension,
				Required:  required,
				Remaining: limit.Remaining(),
				Units:     limit.Units,
			})
		}
	}

	if len(violations) > 0 {
		return errdef.NewBadRequest("%w", &LimitExceededError{Violations: violations})
	}
	return nil
}
