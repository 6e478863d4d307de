package testutil

import (
	"math"
	"time"

	"rcnpulse/pkg/contracts/domain"
)

// MonthStart returns the first instant of the given month in UTC
func MonthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// Shipment builds a ledger row at the destination port
func Shipment(date time.Time, goods, importer, origin string, qty, unitPrice float64) domain.ShipmentRecord {
	return domain.ShipmentRecord{
		Date:             domain.Time(date),
		PortCode:         "INTUT1",
		GoodsDescription: goods,
		Quantity:         domain.Float(qty),
		UnitPrice:        domain.Float(unitPrice),
		TotalValue:       domain.Float(qty * unitPrice),
		Importer:         importer,
		OriginCountry:    origin,
	}
}

// SeasonalSeries returns n consecutive monthly points starting at start,
// following base + slope*i plus a yearly sine of the given amplitude
func SeasonalSeries(key string, start time.Time, n int, base, slope, amplitude float64) domain.PriceSeries {
	points := make([]domain.PricePoint, n)
	for i := range points {
		month := start.AddDate(0, i, 0)
		season := amplitude * math.Sin(2*math.Pi*float64(int(month.Month())-1)/12)
		points[i] = domain.PricePoint{
			Month: month,
			Price: base + slope*float64(i) + season,
			Count: 1,
		}
	}
	return domain.PriceSeries{Key: key, Points: points}
}
