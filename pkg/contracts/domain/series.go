package domain

import "time"

// PricePoint is the mean unit price for one calendar month
type PricePoint struct {
	Month time.Time `json:"month"`
	Price float64   `json:"price"`
	Count int       `json:"count"`
}

// PriceSeries is a month-ordered price series for one grouping key.
// Months are unique and strictly increasing.
type PriceSeries struct {
	Key    string       `json:"key"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of monthly points
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Last returns the final point of the series
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// VolumePoint is the summed quantity for one calendar month, in tonnes
type VolumePoint struct {
	Month  time.Time `json:"month"`
	Tonnes float64   `json:"tonnes"`
}

// ForecastPoint is a single model output. Historical is true for points
// inside the fitted span and false for projected months.
type ForecastPoint struct {
	Month      time.Time `json:"month"`
	Predicted  float64   `json:"predicted"`
	Historical bool      `json:"historical"`
}

// ForecastResult covers the fitted history followed by the forward horizon
type ForecastResult struct {
	Key     string          `json:"key"`
	Horizon int             `json:"horizon"`
	Points  []ForecastPoint `json:"points"`
}

// Projected returns only the points beyond the last observed month
func (f *ForecastResult) Projected() []ForecastPoint {
	if f == nil {
		return nil
	}
	out := make([]ForecastPoint, 0, f.Horizon)
	for _, p := range f.Points {
		if !p.Historical {
			out = append(out, p)
		}
	}
	return out
}
