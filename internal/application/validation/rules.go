package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tolerances are the largest acceptable differences between prescribed and
// traced values. Sphere, cylinder and addition are diopters, axis is degrees
// and pupillary distance is millimeters.
type Tolerances struct {
	Sphere            float64 `yaml:"sphere"`
	Cylinder          float64 `yaml:"cylinder"`
	Axis              float64 `yaml:"axis"`
	Addition          float64 `yaml:"addition"`
	PupillaryDistance float64 `yaml:"pupillary_distance"`
}

// ComplexityThresholds define when frame geometry or optical power counts as complex.
type ComplexityThresholds struct {
	PoorTracingPoints      int     `yaml:"poor_tracing_points"`
	ExcellentTracingPoints int     `yaml:"excellent_tracing_points"`
	SmallBMeasurement      float64 `yaml:"small_b_measurement"`
	HighBaseCurve          float64 `yaml:"high_base_curve"`
	HighSphere             float64 `yaml:"high_sphere"`
	HighCylinder           float64 `yaml:"high_cylinder"`
}

// ComplexityPoints are the score contributions of each complexity rule.
// ExcellentTracing is the only negative contribution.
type ComplexityPoints struct {
	PoorTracing      int `yaml:"poor_tracing"`
	ExcellentTracing int `yaml:"excellent_tracing"`
	WrapFrame        int `yaml:"wrap_frame"`
	SmallB           int `yaml:"small_b"`
	HighCurvature    int `yaml:"high_curvature"`
	HighSphere       int `yaml:"high_sphere"`
	HighCylinder     int `yaml:"high_cylinder"`
	Prism            int `yaml:"prism"`
}

// ConfidencePenalties are subtracted from a starting confidence of 100.
type ConfidencePenalties struct {
	CriticalIssue       float64 `yaml:"critical_issue"`
	WarningIssue        float64 `yaml:"warning_issue"`
	MissingTracing      float64 `yaml:"missing_tracing"`
	MissingPrescription float64 `yaml:"missing_prescription"`
	PupillaryDistance   float64 `yaml:"pupillary_distance"`
}

// RoutingThresholds drive the routing decision and the complexity tier.
type RoutingThresholds struct {
	SimpleMax                float64 `yaml:"simple_max"`
	ComplexMin               float64 `yaml:"complex_min"`
	AutoApproveMinConfidence float64 `yaml:"auto_approve_min_confidence"`
}

// Rules is the complete rule set of the validation engine. It is built once at
// startup and passed by value, so a running sweep never observes a change.
type Rules struct {
	Tolerances Tolerances           `yaml:"tolerances"`
	Complexity ComplexityThresholds `yaml:"complexity"`
	Points     ComplexityPoints     `yaml:"points"`
	Penalties  ConfidencePenalties  `yaml:"penalties"`
	Routing    RoutingThresholds    `yaml:"routing"`
}

// DefaultRules returns the lab's standard rule set.
func DefaultRules() Rules {
	return Rules{
		Tolerances: Tolerances{
			Sphere:            0.12,
			Cylinder:          0.12,
			Axis:              2,
			Addition:          0.12,
			PupillaryDistance: 1.0,
		},
		Complexity: ComplexityThresholds{
			PoorTracingPoints:      50,
			ExcellentTracingPoints: 200,
			SmallBMeasurement:      25,
			HighBaseCurve:          8,
			HighSphere:             6.0,
			HighCylinder:           2.0,
		},
		Points: ComplexityPoints{
			PoorTracing:      30,
			ExcellentTracing: -5,
			WrapFrame:        25,
			SmallB:           20,
			HighCurvature:    30,
			HighSphere:       15,
			HighCylinder:     10,
			Prism:            20,
		},
		Penalties: ConfidencePenalties{
			CriticalIssue:       20,
			WarningIssue:        5,
			MissingTracing:      30,
			MissingPrescription: 30,
			PupillaryDistance:   10,
		},
		Routing: RoutingThresholds{
			SimpleMax:                30,
			ComplexMin:               60,
			AutoApproveMinConfidence: 90,
		},
	}
}

// LoadRules returns DefaultRules overlaid with the YAML file at path. Keys
// missing from the file keep their default values. An empty path returns the
// defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// WithRouting returns a copy of r using the given routing thresholds.
func (r Rules) WithRouting(routing RoutingThresholds) Rules {
	r.Routing = routing
	return r
}

// Validate checks the rule set for values that would make routing inconsistent.
func (r Rules) Validate() error {
	t := r.Tolerances
	if t.Sphere < 0 || t.Cylinder < 0 || t.Axis < 0 || t.Addition < 0 || t.PupillaryDistance < 0 {
		return fmt.Errorf("tolerances must not be negative")
	}
	if t.Axis > 90 {
		return fmt.Errorf("axis tolerance %.2f exceeds the largest possible meridian difference of 90", t.Axis)
	}

	c := r.Complexity
	if c.PoorTracingPoints >= c.ExcellentTracingPoints {
		return fmt.Errorf("poor tracing points (%d) must be below excellent tracing points (%d)",
			c.PoorTracingPoints, c.ExcellentTracingPoints)
	}

	p := r.Penalties
	if p.CriticalIssue < 0 || p.WarningIssue < 0 || p.MissingTracing < 0 || p.MissingPrescription < 0 || p.PupillaryDistance < 0 {
		return fmt.Errorf("confidence penalties must not be negative")
	}

	rt := r.Routing
	if rt.SimpleMax < 0 || rt.ComplexMin > 100 {
		return fmt.Errorf("routing thresholds must lie within 0-100")
	}
	if rt.SimpleMax > rt.ComplexMin {
		return fmt.Errorf("simple max (%.0f) must not exceed complex min (%.0f)", rt.SimpleMax, rt.ComplexMin)
	}
	if rt.AutoApproveMinConfidence < 0 || rt.AutoApproveMinConfidence > 100 {
		return fmt.Errorf("auto-approve confidence %.0f must lie within 0-100", rt.AutoApproveMinConfidence)
	}
	return nil
}
