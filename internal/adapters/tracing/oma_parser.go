package tracing

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

// WrapTiltDegrees is the face-form tilt from which a frame counts as wrap.
const WrapTiltDegrees = 10.0

// unknownValue marks a field the tracer could not measure.
const unknownValue = "?"

// OMAParser reads frame-tracing files in the OMA/VCA text format: one
// LABEL=right;left record per line, with shape data as TRCFMT headers followed
// by R= radius records.
type OMAParser struct{}

// NewOMAParser creates a new OMA/VCA tracing parser
func NewOMAParser() providers.TracingParser {
	return &OMAParser{}
}

// record is one LABEL=values line.
type record struct {
	line   int
	label  string
	values []string
}

// IsValidTracingFile reports whether payload looks like an OMA file: at least
// one LABEL=value line with a label this parser understands. Lines after an
// unreadable one are not considered.
func (p *OMAParser) IsValidTracingFile(payload string) bool {
	if strings.TrimSpace(payload) == "" {
		return false
	}
	records, _ := scanRecords(payload)
	return hasKnownLabel(records)
}

func hasKnownLabel(records []record) bool {
	for _, rec := range records {
		if _, ok := knownLabels[rec.label]; ok {
			return true
		}
	}
	return false
}

// ParseTracingFile parses an OMA payload. Unknown labels are ignored; a
// malformed value for a known label is a parse error.
func (p *OMAParser) ParseTracingFile(payload string) (*entities.TracingData, error) {
	records, err := scanRecords(payload)
	if err != nil {
		return nil, apperrors.NewParseError("unreadable OMA payload", err)
	}
	if !hasKnownLabel(records) {
		return nil, apperrors.NewParseError("payload is not an OMA tracing file", nil)
	}

	data := &entities.TracingData{FrameType: entities.FrameTypeFlat}
	var (
		shapes      []*shape
		current     *shape
		monocularPD [2]*float64
		tilt        [2]*float64
		curve       [2]*float64
	)

	for _, rec := range records {
		var err error
		switch rec.label {
		case "SPH":
			err = assignEyes(rec, &data.OD.Sphere, &data.OS.Sphere)
		case "CYL":
			err = assignEyes(rec, &data.OD.Cylinder, &data.OS.Cylinder)
		case "AX":
			err = assignEyes(rec, &data.OD.Axis, &data.OS.Axis)
		case "ADD":
			err = assignEyes(rec, &data.OD.Addition, &data.OS.Addition)
		case "PRVM":
			err = assignEyes(rec, &data.OD.Prism, &data.OS.Prism)
		case "IPD":
			err = assignEyes(rec, &monocularPD[0], &monocularPD[1])
		case "HBOX":
			err = assignBoth(rec, &data.FrameSize.A)
		case "VBOX":
			err = assignBoth(rec, &data.FrameSize.B)
		case "DBL":
			err = assignBoth(rec, &data.FrameSize.Bridge)
		case "FCRV":
			err = assignEyes(rec, &curve[0], &curve[1])
		case "ZTILT":
			err = assignEyes(rec, &tilt[0], &tilt[1])
		case "TRCFMT":
			current, err = parseShapeHeader(rec)
			if err == nil {
				shapes = append(shapes, current)
			}
		case "R":
			if current == nil {
				err = recordError(rec, "radius data before TRCFMT header")
				break
			}
			current.radii += countValues(rec.values)
		}
		if err != nil {
			return nil, apperrors.NewParseError("malformed OMA record", err)
		}
	}

	if monocularPD[0] != nil && monocularPD[1] != nil {
		pd := *monocularPD[0] + *monocularPD[1]
		data.PupillaryDistance = &pd
	}
	data.BaseCurve = maxOf(curve[0], curve[1])
	if t := maxOf(tilt[0], tilt[1]); t != nil && *t >= WrapTiltDegrees {
		data.FrameType = entities.FrameTypeWrap
	}
	data.TracingPoints = tracingPoints(shapes)

	return data, nil
}

var knownLabels = map[string]struct{}{
	"SPH": {}, "CYL": {}, "AX": {}, "ADD": {}, "PRVM": {}, "IPD": {},
	"HBOX": {}, "VBOX": {}, "DBL": {}, "FCRV": {}, "ZTILT": {}, "TRCFMT": {}, "R": {},
}

// maxLineBytes bounds a single OMA line.
const maxLineBytes = 1024 * 1024

// scanRecords splits payload into records. On a line longer than maxLineBytes
// it returns the records before that line and an error.
func scanRecords(payload string) ([]record, error) {
	var records []record
	scanner := bufio.NewScanner(strings.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		label, rest, ok := strings.Cut(text, "=")
		if !ok || label == "" {
			continue
		}
		values := strings.Split(rest, ";")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		records = append(records, record{line: line, label: strings.ToUpper(strings.TrimSpace(label)), values: values})
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("line %d: %w", line+1, err)
	}
	return records, nil
}

// assignEyes stores right;left values. A single value applies to both eyes.
func assignEyes(rec record, right, left **float64) error {
	values := rec.values
	if len(values) == 1 {
		values = []string{values[0], values[0]}
	}
	r, err := parseValue(rec, values[0])
	if err != nil {
		return err
	}
	l, err := parseValue(rec, values[1])
	if err != nil {
		return err
	}
	*right, *left = r, l
	return nil
}

// assignBoth stores a frame measurement, preferring the right side.
func assignBoth(rec record, dst **float64) error {
	var right, left *float64
	if err := assignEyes(rec, &right, &left); err != nil {
		return err
	}
	if right != nil {
		*dst = right
	} else {
		*dst = left
	}
	return nil
}

func parseValue(rec record, raw string) (*float64, error) {
	if raw == "" || raw == unknownValue {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, recordError(rec, fmt.Sprintf("invalid number %q", raw))
	}
	return &v, nil
}

type shape struct {
	declared int
	radii    int
}

// parseShapeHeader reads TRCFMT=format;points;mode;side;... and starts a new shape.
func parseShapeHeader(rec record) (*shape, error) {
	if len(rec.values) < 2 {
		return nil, recordError(rec, "TRCFMT requires format and point count")
	}
	n, err := strconv.Atoi(rec.values[1])
	if err != nil || n < 0 {
		return nil, recordError(rec, fmt.Sprintf("invalid point count %q", rec.values[1]))
	}
	return &shape{declared: n}, nil
}

func countValues(values []string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// tracingPoints is the resolution of the weakest traced side. Shapes without
// radius records fall back to their declared count.
func tracingPoints(shapes []*shape) int {
	points := -1
	for _, s := range shapes {
		n := s.radii
		if n == 0 {
			n = s.declared
		}
		if points < 0 || n < points {
			points = n
		}
	}
	if points < 0 {
		return 0
	}
	return points
}

func maxOf(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	default:
		return a
	}
}

func recordError(rec record, msg string) error {
	return fmt.Errorf("line %d (%s): %s", rec.line, rec.label, msg)
}
