package domain

import (
	"time"
)

// TradeRecord is one annual bulk-trade sub-record for an origin, as reported
// by the trade statistics endpoint. UnitPrice is nil when Quantity is not
// positive.
type TradeRecord struct {
	Origin     string   `json:"origin"`
	Year       int      `json:"year"`
	TradeValue float64  `json:"trade_value"`
	Quantity   float64  `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price"`
}

// HasPrice reports whether the record carries a derived unit price
func (r TradeRecord) HasPrice() bool {
	return r.UnitPrice != nil
}

// ShipmentRecord is one row of the destination-port import ledger.
// Nil fields are values that were missing or failed coercion.
type ShipmentRecord struct {
	Date             *time.Time `json:"date"`
	PortCode         string     `json:"port_code"`
	GoodsDescription string     `json:"goods_description"`
	Quantity         *float64   `json:"quantity"`
	UnitPrice        *float64   `json:"unit_price"`
	TotalValue       *float64   `json:"total_value"`
	Importer         string     `json:"importer"`
	OriginCountry    string     `json:"origin_country"`
}

// VesselRecord is an expected arrival at the destination port. ETA is nil
// when the feed value could not be parsed.
type VesselRecord struct {
	VesselName       string     `json:"vessel_name"`
	ETA              *time.Time `json:"eta"`
	LastPort         string     `json:"last_port"`
	CargoDescription string     `json:"cargo_description"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Time returns a pointer to t
func Time(t time.Time) *time.Time {
	return &t
}
