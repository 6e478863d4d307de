package config

import "time"

// Application constants for the RCN Pulse system
const (
	// Application Info
	AppName    = "RCN Pulse"
	AppVersion = "0.3.0"

	// Commodity and destination port
	CommodityCode          = "080131" // HS: cashew nuts in shell
	DestinationPortCode    = "INTUT1" // Tuticorin ledger port code
	DestinationPortTrackID = "403"    // Tuticorin id on the vessel-tracking service

	// Ledger layout
	LedgerHeaderRows  = 5
	DefaultLedgerFile = "RCN JAN 2020 TO DEC 2024.xlsx"

	// Forecasting
	ForecastMinPoints      = 12
	DefaultForecastHorizon = 3
	MaxForecastHorizon     = 6

	// Rankings
	SellRankingLimit = 10
	TopOriginsLimit  = 10
	LatestCIFWindow  = 500 // trailing ledger rows averaged for the CIF KPI

	// Vessel board
	DefaultVesselLimit = 20

	// Network Timeouts
	DefaultHTTPTimeout = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50
)

// Grade describes a raw cashew nut quality grade by its outturn
type Grade struct {
	Code        string `json:"code"`
	MinLbs      int    `json:"min_lbs"`
	Description string `json:"description"`
}

// Origin is a producing country the desk buys from
type Origin struct {
	Name string `json:"name"`
	ISO  string `json:"iso"`
}

// Grades lists the tradable grades in display order
var Grades = []Grade{
	{Code: "RBS", MinLbs: 46, Description: "Regular Bold 46-48 lbs"},
	{Code: "NC", MinLbs: 48, Description: "Northern Cone 48 lbs"},
}

// Origins lists the configured origins in display order
var Origins = []Origin{
	{Name: "Ghana", ISO: "GH"},
	{Name: "Côte d'Ivoire", ISO: "CI"},
	{Name: "Guinea", ISO: "GN"},
	{Name: "Tanzania", ISO: "TZ"},
	{Name: "Benin", ISO: "BJ"},
}

// LookupOrigin returns the configured origin for an ISO code
func LookupOrigin(iso string) (Origin, bool) {
	for _, o := range Origins {
		if o.ISO == iso {
			return o, true
		}
	}
	return Origin{}, false
}

// LookupGrade returns the grade for a code
func LookupGrade(code string) (Grade, bool) {
	for _, g := range Grades {
		if g.Code == code {
			return g, true
		}
	}
	return Grade{}, false
}

// OriginCodes returns the ISO codes of all configured origins
func OriginCodes() []string {
	codes := make([]string, len(Origins))
	for i, o := range Origins {
		codes[i] = o.ISO
	}
	return codes
}
