package exporter

import (
	"rcnpulse/pkg/contracts/domain"
)

// BuyTable lists origins cheapest first
func BuyTable(options []domain.BuyOption) Table {
	t := Table{Headers: []string{"Origin", "ISO", "FOB USD/t"}}
	for _, o := range options {
		t.Rows = append(t.Rows, []string{o.Origin, o.ISO, formatFloat(o.FOBPrice)})
	}
	return t
}

// SellTable lists importers by mean price paid
func SellTable(options []domain.SellOption) Table {
	t := Table{Headers: []string{"Buyer", "Avg USD/t", "Volume (kg)"}}
	for _, o := range options {
		t.Rows = append(t.Rows, []string{o.Importer, formatFloat(o.AvgPrice), formatFloat(o.TotalQuantity)})
	}
	return t
}

// SeriesTable lists one row per month of a price series
func SeriesTable(series domain.PriceSeries) Table {
	t := Table{Headers: []string{"Series", "Month", "Price USD/t", "Shipments"}}
	for _, p := range series.Points {
		t.Rows = append(t.Rows, []string{series.Key, formatMonth(p.Month), formatFloat(p.Price), formatInt(p.Count)})
	}
	return t
}

// ForecastTable lists fitted and projected months. A nil forecast yields
// only the header.
func ForecastTable(f *domain.ForecastResult) Table {
	t := Table{Headers: []string{"Series", "Month", "Predicted USD/t", "Historical"}}
	if f == nil {
		return t
	}
	for _, p := range f.Points {
		t.Rows = append(t.Rows, []string{f.Key, formatMonth(p.Month), formatFloat(p.Predicted), formatBool(p.Historical)})
	}
	return t
}

// VesselTable lists expected arrivals
func VesselTable(vessels []domain.VesselRecord) Table {
	t := Table{Headers: []string{"Vessel", "ETA", "Last Port", "Cargo"}}
	for _, v := range vessels {
		t.Rows = append(t.Rows, []string{v.VesselName, formatOptTime(v.ETA), v.LastPort, v.CargoDescription})
	}
	return t
}

// VolumeTable lists monthly imported tonnage
func VolumeTable(points []domain.VolumePoint) Table {
	t := Table{Headers: []string{"Month", "Tonnes"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{formatMonth(p.Month), formatFloat(p.Tonnes)})
	}
	return t
}

// OriginTable lists tonnage per origin country
func OriginTable(origins []domain.OriginVolume) Table {
	t := Table{Headers: []string{"Country", "Tonnes"}}
	for _, o := range origins {
		t.Rows = append(t.Rows, []string{o.Country, formatFloat(o.Tonnes)})
	}
	return t
}

// KPITable is the headline metrics as label/value pairs
func KPITable(k domain.KPIs) Table {
	return Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Latest CIF USD/t", formatOptFloat(k.LatestCIF)},
			{"Latest FOB USD/t (" + k.LatestFOBOrigin + ")", formatOptFloat(k.LatestFOB)},
			{"Imports " + formatInt(k.ImportsYear) + " (t)", formatFloat(k.ImportsTonnes)},
		},
	}
}
