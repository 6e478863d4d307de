package domain

import "time"

// Filters are the user-selected dashboard inputs
type Filters struct {
	Grade   string   `json:"grade" validate:"required,rcn_grade"`
	Origins []string `json:"origins" validate:"unique,dive,rcn_origin"`
	Horizon int      `json:"horizon" validate:"min=1,max=6"`
}

// KPIs are the headline metrics shown above the dashboard tabs
type KPIs struct {
	LatestCIF       *float64 `json:"latest_cif_usd_per_t"`
	LatestFOB       *float64 `json:"latest_fob_usd_per_t"`
	LatestFOBOrigin string   `json:"latest_fob_origin,omitempty"`
	ImportsYear     int      `json:"imports_year"`
	ImportsTonnes   float64  `json:"imports_tonnes"`
}

// DashboardState is everything the presentation layer needs for one
// filter selection. It is recomputed per request and never persisted.
type DashboardState struct {
	Filters           Filters         `json:"filters"`
	KPIs              KPIs            `json:"kpis"`
	PriceSeries       PriceSeries     `json:"price_series"`
	Forecast          *ForecastResult `json:"forecast,omitempty"`
	ForecastAvailable bool            `json:"forecast_available"`
	FallbackSeries    *PriceSeries    `json:"fallback_series,omitempty"`
	BuyOptions        []BuyOption     `json:"buy_options"`
	SellOptions       []SellOption    `json:"sell_options"`
	Vessels           []VesselRecord  `json:"vessels"`
	VesselFeedEnabled bool            `json:"vessel_feed_enabled"`
	MonthlyVolume     []VolumePoint   `json:"monthly_volume"`
	TopOrigins        []OriginVolume  `json:"top_origins"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
