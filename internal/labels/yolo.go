// Package labels reads and writes the per-project annotation artifacts:
// YOLO label files, the class list and the classification info file.
package labels

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"snaplabel/internal/annotation"
	"snaplabel/pkg/geometry"
)

// Box is one label record in YOLO centre form, normalized to [0,1] by the
// image size.
type Box struct {
	Class  string
	CX, CY float64
	W, H   float64
}

// FromAnnotation converts an annotation in image pixels to a normalized box.
// Provisional records and empty image sizes yield false.
func FromAnnotation(a annotation.Annotation, size geometry.Size) (Box, bool) {
	if a.Provisional() || a.Shape == nil || size.Empty() {
		return Box{}, false
	}
	r := a.Shape.Bounds()
	c := r.Center()
	return Box{
		Class: a.Class,
		CX:    c.X / size.Width,
		CY:    c.Y / size.Height,
		W:     r.Width / size.Width,
		H:     r.Height / size.Height,
	}, true
}

// Rect returns the box in image pixels.
func (b Box) Rect(size geometry.Size) geometry.Rect {
	w := b.W * size.Width
	h := b.H * size.Height
	return geometry.NewRect(b.CX*size.Width-w/2, b.CY*size.Height-h/2, w, h)
}

// Annotation returns the box as a rectangle annotation in image pixels.
func (b Box) Annotation(size geometry.Size) annotation.Annotation {
	return annotation.Annotation{
		Shape: annotation.Rectangle{Rect: b.Rect(size)},
		Class: b.Class,
	}
}

// String formats the box as a label line with the class name.
func (b Box) String() string {
	return fmt.Sprintf("%s %.6f %.6f %.6f %.6f", b.Class, b.CX, b.CY, b.W, b.H)
}

// WithID formats the box as a training label line with a numeric class id.
func (b Box) WithID(id int) string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", id, b.CX, b.CY, b.W, b.H)
}

// LineError describes a label line that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// ErrFieldCount is reported for label lines without exactly five fields.
var ErrFieldCount = errors.New("expected 5 fields")

// Format renders the non-provisional annotations as label file content.
func Format(anns []annotation.Annotation, size geometry.Size) string {
	var buf bytes.Buffer
	for _, a := range anns {
		if b, ok := FromAnnotation(a, size); ok {
			buf.WriteString(b.String())
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// Parse reads label lines. Blank lines are skipped; malformed lines are
// returned separately and do not stop parsing.
func Parse(r io.Reader) ([]Box, []LineError, error) {
	var (
		boxes []Box
		bad   []LineError
	)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		b, err := parseLine(line)
		if err != nil {
			bad = append(bad, LineError{Line: n, Text: line, Err: err})
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes, bad, sc.Err()
}

func parseLine(line string) (Box, error) {
	f := strings.Fields(line)
	if len(f) != 5 {
		return Box{}, fmt.Errorf("%w, got %d", ErrFieldCount, len(f))
	}
	var v [4]float64
	for i := range v {
		x, err := strconv.ParseFloat(f[i+1], 64)
		if err != nil {
			return Box{}, err
		}
		v[i] = x
	}
	return Box{Class: f[0], CX: v[0], CY: v[1], W: v[2], H: v[3]}, nil
}

// ReadBoxes parses a label file, logging and skipping malformed lines.
// A missing file yields no boxes and no error.
func ReadBoxes(path string, log logrus.FieldLogger) ([]Box, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	boxes, bad, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	for _, le := range bad {
		log.WithField("file", path).WithField("line", le.Line).Warnf("skipping label: %v", le.Err)
	}
	return boxes, nil
}

// Read loads a label file as rectangle annotations in image pixels.
func Read(path string, size geometry.Size, log logrus.FieldLogger) ([]annotation.Annotation, error) {
	boxes, err := ReadBoxes(path, log)
	if err != nil {
		return nil, err
	}
	out := make([]annotation.Annotation, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, b.Annotation(size))
	}
	return out, nil
}

// Write stores the non-provisional annotations to a label file, replacing
// its previous content.
func Write(path string, anns []annotation.Annotation, size geometry.Size) error {
	if err := os.WriteFile(path, []byte(Format(anns, size)), 0644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	return nil
}
