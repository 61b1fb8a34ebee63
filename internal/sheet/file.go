package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrMalformed reports an annotation list that does not have the expected
// shape.
var ErrMalformed = errors.New("malformed annotation list")

// record mirrors Annotation with optional fields so missing coordinates can
// be told apart from zero.
type record struct {
	Number      *float64 `json:"number"`
	Label       string   `json:"label"`
	TargetX     *float64 `json:"targetX"`
	TargetY     *float64 `json:"targetY"`
	ArrowStartX *float64 `json:"arrowStartX"`
	ArrowStartY *float64 `json:"arrowStartY"`
}

type envelope struct {
	Annotations []record `json:"annotations"`
	Error       string   `json:"error,omitempty"`
}

// Parse decodes either a bare JSON array of annotations or an object with
// an "annotations" field. Coordinates are clamped into range and missing or
// non-positive numbers fall back to the 1-based position.
func Parse(data []byte) ([]Annotation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	var recs []record
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if env.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, env.Error)
		}
		recs = env.Annotations
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrMalformed)
	}

	out := make([]Annotation, 0, len(recs))
	for i, r := range recs {
		if r.TargetX == nil || r.TargetY == nil || r.ArrowStartX == nil || r.ArrowStartY == nil {
			return nil, fmt.Errorf("%w: entry %d is missing a coordinate", ErrMalformed, i)
		}
		a := Annotation{
			Label:       r.Label,
			TargetX:     *r.TargetX,
			TargetY:     *r.TargetY,
			ArrowStartX: *r.ArrowStartX,
			ArrowStartY: *r.ArrowStartY,
		}
		if r.Number != nil && *r.Number >= 1 && !math.IsInf(*r.Number, 0) {
			a.Number = int(math.Round(*r.Number))
		}
		out = append(out, a)
	}
	return Normalize(out)
}

// Decode reads an annotation list from r.
func Decode(r io.Reader) ([]Annotation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Encode writes list as an indented JSON array.
func Encode(w io.Writer, list []Annotation) error {
	if list == nil {
		list = []Annotation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(list)
}

// ReadFile loads an annotation list from path.
func ReadFile(path string) ([]Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// WriteFile stores list at path, replacing any previous content.
func WriteFile(path string, list []Annotation) error {
	var buf bytes.Buffer
	if err := Encode(&buf, list); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
