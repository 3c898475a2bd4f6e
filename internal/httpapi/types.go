package httpapi

import "blockhouse/internal/domain"

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// fetchResponse reports the outcome of an ingestion request.
type fetchResponse struct {
	Symbol string `json:"symbol"`
	Bars   int    `json:"bars_upserted"`
}

// predictionPoint is one predicted price in a prediction response.
type predictionPoint struct {
	Date  string `json:"date"`
	Price string `json:"predicted_price"`
}

// predictResponse lists the stored predictions for a symbol.
type predictResponse struct {
	Symbol      string            `json:"symbol"`
	Predictions []predictionPoint `json:"predictions"`
}

func toPredictionPoints(preds []domain.Prediction) []predictionPoint {
	points := make([]predictionPoint, 0, len(preds))
	for _, p := range preds {
		points = append(points, predictionPoint{
			Date:  p.Date.Format(domain.DateLayout),
			Price: p.Price.String(),
		})
	}
	return points
}
