package entities

// EyeValues holds the optical parameters for one eye. A nil field means the
// value was not supplied by its source.
type EyeValues struct {
	Sphere   *float64 `json:"sphere,omitempty"`
	Cylinder *float64 `json:"cylinder,omitempty"`
	Axis     *float64 `json:"axis,omitempty"`
	Addition *float64 `json:"addition,omitempty"`
	Prism    *float64 `json:"prism,omitempty"`
}

// IsEmpty reports whether no optical value is present for the eye.
func (e EyeValues) IsEmpty() bool {
	return e.Sphere == nil && e.Cylinder == nil && e.Axis == nil && e.Addition == nil && e.Prism == nil
}

// HasPrism reports whether a non-zero prism component is present.
func (e EyeValues) HasPrism() bool {
	return e.Prism != nil && *e.Prism != 0
}

// PrescriptionValues is the clinician's prescription for a lens order.
// Sphere, cylinder and addition are diopters, axis is degrees (0-180) and
// pupillary distance is millimeters.
type PrescriptionValues struct {
	OD                EyeValues `json:"od"`
	OS                EyeValues `json:"os"`
	PupillaryDistance *float64  `json:"pd,omitempty"`
}

// IsEmpty reports whether the prescription carries no values at all.
func (p *PrescriptionValues) IsEmpty() bool {
	return p == nil || (p.OD.IsEmpty() && p.OS.IsEmpty() && p.PupillaryDistance == nil)
}

// Float64 returns a pointer to v, for building optional optical values.
func Float64(v float64) *float64 {
	return &v
}
