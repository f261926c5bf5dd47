package entities

// FrameType distinguishes wrap-around frames from flat fronts.
type FrameType string

const (
	FrameTypeFlat FrameType = "flat"
	FrameTypeWrap FrameType = "wrap"
)

// FrameSize is the boxed size of the frame's lens opening and bridge, in millimeters.
type FrameSize struct {
	A      *float64 `json:"a,omitempty"`
	B      *float64 `json:"b,omitempty"`
	Bridge *float64 `json:"bridge,omitempty"`
}

// TracingData is the structured output of the frame-tracing parser for one order.
type TracingData struct {
	OD                EyeValues `json:"od"`
	OS                EyeValues `json:"os"`
	PupillaryDistance *float64  `json:"pd,omitempty"`
	FrameSize         FrameSize `json:"frame_size"`
	BaseCurve         *float64  `json:"base_curve,omitempty"`
	FrameType         FrameType `json:"frame_type"`
	TracingPoints     int       `json:"tracing_points"`
}

// IsWrap reports whether the traced frame is a wrap frame.
func (t *TracingData) IsWrap() bool {
	return t != nil && t.FrameType == FrameTypeWrap
}
