// Package predict produces short-horizon price predictions from a daily
// series using ordinary least squares over the bar's day index.
package predict

import (
	"errors"

	"github.com/shopspring/decimal"

	"blockhouse/internal/domain"
)

// ErrNoData is returned when the series has no bars to fit against.
var ErrNoData = errors.New("predict: empty series")

// Predictor fits a single-feature linear model (close price against day
// index) and projects it forward over a fixed calendar-day horizon. A
// Predictor is constructed explicitly and injected into callers; there is no
// global model state.
type Predictor struct {
	trainWindow int
	horizonDays int
}

// NewPredictor creates a Predictor that fits against the trailing trainWindow
// bars and predicts the next horizonDays calendar days.
func NewPredictor(trainWindow, horizonDays int) *Predictor {
	if trainWindow <= 0 {
		trainWindow = 30
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &Predictor{trainWindow: trainWindow, horizonDays: horizonDays}
}

// Predict returns one prediction per future calendar day, starting the day
// after the last bar in the series.
func (p *Predictor) Predict(series domain.Series) ([]domain.Prediction, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}

	train := series
	if len(train) > p.trainWindow {
		train = train[len(train)-p.trainWindow:]
	}

	// Fit close = slope*dayIndex + intercept over the full series' indexing,
	// so projections continue the same axis.
	offset := len(series) - len(train)
	slope, intercept := fitLine(train, offset)

	last := series[len(series)-1]
	preds := make([]domain.Prediction, 0, p.horizonDays)
	for d := 1; d <= p.horizonDays; d++ {
		x := float64(len(series) - 1 + d)
		price := slope*x + intercept
		preds = append(preds, domain.Prediction{
			Symbol: last.Symbol,
			Date:   last.Date.AddDate(0, 0, d),
			Price:  decimal.NewFromFloat(price).Round(2),
		})
	}
	return preds, nil
}

// fitLine computes the least-squares slope and intercept of close price
// against day index for the training bars. offset is the day index of the
// first training bar within the full series. A single-bar fit degenerates to
// a flat line at that bar's close.
func fitLine(train domain.Series, offset int) (slope, intercept float64) {
	n := float64(len(train))
	if len(train) == 1 {
		v, _ := train[0].Close.Float64()
		return 0, v
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, b := range train {
		x := float64(offset + i)
		y, _ := b.Close.Float64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
