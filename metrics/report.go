package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jmontanero23-design/iava.ai-sub006/core/model"
)

// ClassificationReport summarizes probability predictions at one threshold.
type ClassificationReport struct {
	Support     int             `json:"support"`
	Threshold   float64         `json:"threshold"`
	Accuracy    float64         `json:"accuracy"`
	Precision   float64         `json:"precision"`
	Recall      float64         `json:"recall"`
	F1          float64         `json:"f1"`
	Specificity float64         `json:"specificity"`
	AUC         float64         `json:"auc"`
	Brier       float64         `json:"brier"`
	RMSE        float64         `json:"rmse"`
	MAE         float64         `json:"mae"`
	LogLoss     float64         `json:"log_loss"`
	Confusion   ConfusionMatrix `json:"confusion"`
}

// NewClassificationReport scores probabilities against labels, classifying
// p >= threshold as positive.
func NewClassificationReport(yTrue, proba mat.Vector, threshold float64) (ClassificationReport, error) {
	var r ClassificationReport
	if _, err := checkPair("ClassificationReport", yTrue, proba); err != nil {
		return r, err
	}
	cm, err := NewConfusionMatrix(yTrue, model.Threshold(proba, threshold))
	if err != nil {
		return r, err
	}
	auc, err := AUC(yTrue, proba)
	if err != nil {
		return r, err
	}
	brier, err := BrierScore(yTrue, proba)
	if err != nil {
		return r, err
	}
	rmse, err := RMSE(yTrue, proba)
	if err != nil {
		return r, err
	}
	mae, err := MAE(yTrue, proba)
	if err != nil {
		return r, err
	}
	ll, err := LogLoss(yTrue, proba)
	if err != nil {
		return r, err
	}
	return ClassificationReport{
		Support:     cm.Total(),
		Threshold:   threshold,
		Accuracy:    cm.Accuracy(),
		Precision:   cm.Precision(),
		Recall:      cm.Recall(),
		F1:          cm.F1(),
		Specificity: cm.Specificity(),
		AUC:         auc,
		Brier:       brier,
		RMSE:        rmse,
		MAE:         mae,
		LogLoss:     ll,
		Confusion:   cm,
	}, nil
}
