package errors

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with cause",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "signalprob: Fit: invalid input: test error",
		},
		{
			name:    "without cause",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "signalprob: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")

			var modelErr *ModelError
			require.True(t, As(err, &modelErr))
			if tt.err != nil {
				assert.True(t, Is(err, tt.err))
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Score", 3, 5, 1)
	assert.Equal(t, "signalprob: Score: dimension mismatch on axis 1 (features). Expected 3, got 5", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 5, dimErr.Got)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LogisticRegression", "PredictProba")
	assert.Equal(t, "signalprob: LogisticRegression: this model is not fitted yet. Call Fit() before using PredictProba()", err.Error())

	var nf *NotFittedError
	assert.True(t, As(err, &nf))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("scaling", "unknown value", "zscore")
	assert.Equal(t, "signalprob: validation failed for parameter 'scaling': unknown value (got: zscore)", err.Error())

	var ve *ValidationError
	require.True(t, As(err, &ve))
	assert.Equal(t, "zscore", ve.Value)
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("LogisticRegression.Fit", "label 2 at row 4")
	assert.Equal(t, "signalprob: LogisticRegression.Fit: label 2 at row 4", err.Error())
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var dimErr *DimensionError
	require.True(t, As(NewDimensionError("Fit", 2, 3, 0), &dimErr))
	logger.Error().EmbedObject(dimErr).Msg("shape")

	out := buf.String()
	assert.Contains(t, out, `"type":"DimensionError"`)
	assert.Contains(t, out, `"axis_name":"rows"`)
	assert.Contains(t, out, `"expected":2`)
}

func TestWarn(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("MLP", 10, ""))
	Warn(NewUndefinedMetricWarning("precision", "no predicted positives", 0))

	require.Len(t, got, 2)
	assert.Contains(t, got[0].Error(), "MLP did not converge after 10 iterations")
	assert.Contains(t, got[1].Error(), "'precision' is ill-defined")

	var routed error
	SetZerologWarnFunc(func(w error) { routed = w })
	defer SetZerologWarnFunc(nil)

	drift := NewModelDriftWarning("ConceptDriftDetector", -3.1, 2.0, "retrain")
	Warn(drift)
	assert.Equal(t, drift, routed)
	assert.Len(t, got, 2)
}

func TestNumericalHelpers(t *testing.T) {
	assert.NoError(t, CheckScalar("loss", 0.5, 1))
	assert.Error(t, CheckScalar("loss", math.NaN(), 1))
	assert.Error(t, CheckNumericalStability("grad", []float64{1, math.Inf(1)}, 3))

	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 2.0, SafeDivide(4, 2))

	assert.Equal(t, 1.0, ClipValue(3, 0, 1))
	assert.Equal(t, 0.0, ClipValue(-3, 0, 1))
	assert.Equal(t, 0.5, ClipValue(0.5, 0, 1))

	assert.Equal(t, math.Log(1e-15), StabilizeLog(0))
	assert.InDelta(t, 0.0, StabilizeLog(1), 1e-12)

	err := NewNumericalInstabilityError("grad", []float64{1, 2, 3, 4, 5, 6, 7}, 9)
	assert.Contains(t, err.Error(), "...")
	assert.Contains(t, err.Error(), "iteration 9")
}
