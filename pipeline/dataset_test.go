package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmontanero23-design/iava.ai-sub006/pkg/errors"
)

func TestDataset(t *testing.T) {
	X, y, err := Dataset([]LabeledExample{
		{Features: []float64{1, 2}, Label: 1},
		{Features: []float64{3, 4}, Label: 0},
	})
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, X.At(1, 1))
	assert.Equal(t, []float64{1, 0}, y.RawVector().Data)

	tests := []struct {
		name     string
		examples []LabeledExample
	}{
		{"empty", nil},
		{"no features", []LabeledExample{{Label: 1}}},
		{"ragged", []LabeledExample{{Features: []float64{1}}, {Features: []float64{1, 2}}}},
		{"bad label", []LabeledExample{{Features: []float64{1}, Label: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Dataset(tt.examples)
			assert.Error(t, err)
		})
	}

	_, _, err = Dataset([]LabeledExample{{Features: []float64{1}, Label: -1}})
	assert.True(t, errors.Is(err, errors.ErrNotBinary))
}

func TestReadCSV(t *testing.T) {
	input := "rsi, macd, label\n30, -0.5, 0\n70, 0.8, 1\n"
	examples, features, err := ReadCSV(strings.NewReader(input), "label")
	require.NoError(t, err)
	assert.Equal(t, []string{"rsi", "macd"}, features)
	require.Len(t, examples, 2)
	assert.Equal(t, LabeledExample{Features: []float64{70, 0.8}, Label: 1}, examples[1])

	unlabeled, features, err := ReadCSV(strings.NewReader("a,b\n1,2\n"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, features)
	assert.Equal(t, []float64{1, 2}, unlabeled[0].Features)

	tests := []struct {
		name  string
		input string
		label string
	}{
		{"empty", "", "label"},
		{"missing label column", "a,b\n1,2\n", "label"},
		{"non-binary label", "a,label\n1,3\n", "label"},
		{"not a number", "a,label\nx,1\n", "label"},
		{"ragged row", "a,label\n1\n", "label"},
		{"header only", "a,label\n", "label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(tt.input), tt.label)
			assert.Error(t, err)
		})
	}
}
