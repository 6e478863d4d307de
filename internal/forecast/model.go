package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"rcnpulse/internal/config"
	"rcnpulse/pkg/contracts/domain"
)

// ErrInsufficientData is returned by Fit when the series is shorter than
// Options.MinPoints
var ErrInsufficientData = errors.New("insufficient data for forecast")

const (
	yearDays = 365.25
	dayHours = 24
)

// Options tunes the model
type Options struct {
	MinPoints          int
	YearlyFourierOrder int
	// Changepoints is the number of potential trend changepoints
	Changepoints int
	// ChangepointRange is the share of history in which changepoints lie
	ChangepointRange float64
	// ChangepointPrior and SeasonalityPrior are prior scales; the ridge
	// penalty on each coefficient group is 1/scale²
	ChangepointPrior float64
	SeasonalityPrior float64
}

// DefaultOptions returns the standard model settings
func DefaultOptions() Options {
	return OptionsFrom(config.Default().Forecast)
}

// OptionsFrom maps configuration to model options
func OptionsFrom(cfg config.ForecastConfig) Options {
	return Options{
		MinPoints:          cfg.MinPoints,
		YearlyFourierOrder: cfg.YearlyFourierOrder,
		Changepoints:       cfg.Changepoints,
		ChangepointRange:   cfg.ChangepointRange,
		ChangepointPrior:   cfg.ChangepointPrior,
		SeasonalityPrior:   cfg.SeasonalityPrior,
	}
}

// Model is a fitted forecast model
type Model struct {
	start        time.Time
	spanDays     float64
	yScale       float64
	changepoints []float64 // in scaled time
	order        int
	beta         *mat.VecDense
}

// Fit estimates the model from a month-ordered series
func Fit(series domain.PriceSeries, opts Options) (*Model, error) {
	n := series.Len()
	minPoints := max(opts.MinPoints, 2)
	if n < minPoints {
		return nil, fmt.Errorf("%w: %d points, need %d", ErrInsufficientData, n, minPoints)
	}

	first, last := series.Points[0].Month, series.Points[n-1].Month
	span := daysBetween(first, last)
	if span <= 0 {
		return nil, fmt.Errorf("series months must be strictly increasing")
	}

	m := &Model{
		start:    first,
		spanDays: span,
		yScale:   1,
		order:    max(opts.YearlyFourierOrder, 0),
	}
	for _, p := range series.Points {
		m.yScale = math.Max(m.yScale, math.Abs(p.Price))
	}
	m.changepoints = m.placeChangepoints(series, opts)

	months := make([]time.Time, n)
	y := mat.NewVecDense(n, nil)
	for i, p := range series.Points {
		months[i] = p.Month
		y.SetVec(i, p.Price/m.yScale)
	}
	X := m.design(months)
	_, p := X.Dims()

	// (XᵀX + Λ) β = Xᵀy
	var A mat.SymDense
	A.SymOuterK(1, X.T())
	for j, lambda := range m.penalties(opts) {
		A.SetSym(j, j, A.At(j, j)+lambda)
	}
	var b mat.VecDense
	b.MulVec(X.T(), y)

	beta := mat.NewVecDense(p, nil)
	var chol mat.Cholesky
	if chol.Factorize(&A) {
		if err := chol.SolveVecTo(beta, &b); err != nil {
			return nil, fmt.Errorf("solve normal equations: %w", err)
		}
	} else if err := beta.SolveVec(&A, &b); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}
	m.beta = beta

	return m, nil
}

// placeChangepoints spreads potential changepoints evenly over the
// observed months in the first ChangepointRange share of history
func (m *Model) placeChangepoints(series domain.PriceSeries, opts Options) []float64 {
	n := series.Len()
	histSize := int(math.Floor(float64(n) * opts.ChangepointRange))
	count := min(opts.Changepoints, histSize-1)
	if count <= 0 {
		return nil
	}

	cps := make([]float64, 0, count)
	for i := 1; i <= count; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(count)))
		cps = append(cps, m.scaledTime(series.Points[idx].Month))
	}
	return cps
}

func (m *Model) penalties(opts Options) []float64 {
	cpLambda := priorPenalty(opts.ChangepointPrior)
	seasonLambda := priorPenalty(opts.SeasonalityPrior)

	out := make([]float64, 0, 2+len(m.changepoints)+2*m.order)
	out = append(out, 0, 0)
	for range m.changepoints {
		out = append(out, cpLambda)
	}
	for i := 0; i < 2*m.order; i++ {
		out = append(out, seasonLambda)
	}
	return out
}

func priorPenalty(scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	return 1 / (scale * scale)
}

// design builds one row per month: intercept, slope, changepoint hinges,
// then sin and cos pairs of the yearly Fourier series
func (m *Model) design(months []time.Time) *mat.Dense {
	cols := 2 + len(m.changepoints) + 2*m.order
	X := mat.NewDense(len(months), cols, nil)
	for i, month := range months {
		t := m.scaledTime(month)
		X.Set(i, 0, 1)
		X.Set(i, 1, t)
		for j, cp := range m.changepoints {
			X.Set(i, 2+j, math.Max(t-cp, 0))
		}
		base := 2 + len(m.changepoints)
		day := float64(month.Unix()) / 3600 / dayHours
		for k := 1; k <= m.order; k++ {
			angle := 2 * math.Pi * float64(k) * day / yearDays
			X.Set(i, base+2*(k-1), math.Sin(angle))
			X.Set(i, base+2*(k-1)+1, math.Cos(angle))
		}
	}
	return X
}

func (m *Model) scaledTime(month time.Time) float64 {
	return daysBetween(m.start, month) / m.spanDays
}

// Predict evaluates the model at each month
func (m *Model) Predict(months []time.Time) []float64 {
	var yhat mat.VecDense
	yhat.MulVec(m.design(months), m.beta)

	out := make([]float64, len(months))
	for i := range out {
		out[i] = yhat.AtVec(i) * m.yScale
	}
	return out
}

// Forecast fits series and returns fitted values for every observed month
// followed by horizon projected month starts. It reports false when the
// series is too short or the fit fails.
func Forecast(series domain.PriceSeries, horizon int, opts Options) (*domain.ForecastResult, bool) {
	model, err := Fit(series, opts)
	if err != nil {
		return nil, false
	}
	horizon = max(horizon, 0)

	n := series.Len()
	months := make([]time.Time, 0, n+horizon)
	for _, p := range series.Points {
		months = append(months, p.Month)
	}
	last := series.Points[n-1].Month
	for i := 1; i <= horizon; i++ {
		months = append(months, last.AddDate(0, i, 0))
	}

	predicted := model.Predict(months)
	points := make([]domain.ForecastPoint, len(months))
	for i, month := range months {
		points[i] = domain.ForecastPoint{
			Month:      month,
			Predicted:  predicted[i],
			Historical: i < n,
		}
	}

	return &domain.ForecastResult{
		Key:     series.Key,
		Horizon: horizon,
		Points:  points,
	}, true
}

func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / dayHours
}
