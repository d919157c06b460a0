package pipeline

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

// LabeledExample is one training row.
type LabeledExample struct {
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// Dataset stacks examples into a feature matrix and label vector. Every
// example must have the same width and a 0/1 label.
func Dataset(examples []LabeledExample) (*mat.Dense, *mat.VecDense, error) {
	if len(examples) == 0 {
		return nil, nil, errors.NewValueError("Dataset", "no examples")
	}
	width := len(examples[0].Features)
	if width == 0 {
		return nil, nil, errors.NewValueError("Dataset", "examples have no features")
	}
	X := mat.NewDense(len(examples), width, nil)
	y := mat.NewVecDense(len(examples), nil)
	for i, ex := range examples {
		if len(ex.Features) != width {
			return nil, nil, errors.NewDimensionError("Dataset", width, len(ex.Features), 1)
		}
		if ex.Label != 0 && ex.Label != 1 {
			return nil, nil, errors.Wrapf(errors.ErrNotBinary, "example %d has label %d", i, ex.Label)
		}
		X.SetRow(i, ex.Features)
		y.SetVec(i, float64(ex.Label))
	}
	return X, y, nil
}

// ReadCSV reads a headed CSV file. The column named labelColumn holds the
// 0/1 label; every other column is a numeric feature. An empty labelColumn
// reads unlabeled rows with Label 0.
func ReadCSV(r io.Reader, labelColumn string) (examples []LabeledExample, features []string, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read csv header")
	}
	labelIdx := -1
	for i, name := range header {
		name = strings.TrimSpace(name)
		if labelColumn != "" && name == labelColumn {
			labelIdx = i
			continue
		}
		features = append(features, name)
	}
	if labelColumn != "" && labelIdx < 0 {
		return nil, nil, errors.NewValidationError("label_column", "not found in csv header", labelColumn)
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read csv line %d", line)
		}
		ex := LabeledExample{Features: make([]float64, 0, len(features))}
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "parse csv line %d column %q", line, header[i])
			}
			if i == labelIdx {
				if v != 0 && v != 1 {
					return nil, nil, errors.Wrapf(errors.ErrNotBinary, "csv line %d", line)
				}
				ex.Label = int(v)
				continue
			}
			ex.Features = append(ex.Features, v)
		}
		examples = append(examples, ex)
	}
	if len(examples) == 0 {
		return nil, nil, errors.NewValueError("ReadCSV", "no data rows")
	}
	return examples, features, nil
}
