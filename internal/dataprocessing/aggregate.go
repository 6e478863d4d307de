package dataprocessing

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"rcnpulse/pkg/contracts/domain"
)

// Predicate selects ledger rows
type Predicate func(domain.ShipmentRecord) bool

// All accepts every row
func All(domain.ShipmentRecord) bool { return true }

// GradeFilter keeps rows whose goods description contains token.
// Matching is case sensitive, as grade codes are upper case in the ledger.
func GradeFilter(token string) Predicate {
	return func(r domain.ShipmentRecord) bool {
		return strings.Contains(r.GoodsDescription, token)
	}
}

// Since keeps dated rows on or after t
func Since(t time.Time) Predicate {
	return func(r domain.ShipmentRecord) bool {
		return r.Date != nil && !r.Date.Before(t)
	}
}

// InYear keeps rows dated in the given calendar year
func InYear(year int) Predicate {
	return func(r domain.ShipmentRecord) bool {
		return r.Date != nil && r.Date.Year() == year
	}
}

// And combines predicates; with no arguments it accepts every row
func And(preds ...Predicate) Predicate {
	return func(r domain.ShipmentRecord) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

// MonthStart truncates t to the first instant of its month in UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

type meanAcc struct {
	sum   float64
	count int
}

// MonthlyPriceSeries buckets filtered rows by month and averages the unit
// price of each bucket. Rows without a date or price are ignored, and
// months without any price are dropped.
func MonthlyPriceSeries(records []domain.ShipmentRecord, filter Predicate, key string) domain.PriceSeries {
	if filter == nil {
		filter = All
	}
	buckets := make(map[time.Time]*meanAcc)
	for _, r := range records {
		if r.Date == nil || r.UnitPrice == nil || !filter(r) {
			continue
		}
		month := MonthStart(*r.Date)
		acc, ok := buckets[month]
		if !ok {
			acc = &meanAcc{}
			buckets[month] = acc
		}
		acc.sum += *r.UnitPrice
		acc.count++
	}
	return seriesFromBuckets(key, buckets)
}

// TradePriceSeries averages trade sub-record unit prices per year. Each
// year is placed on January 1st so it aligns with monthly ledger series.
func TradePriceSeries(records []domain.TradeRecord, key string) domain.PriceSeries {
	buckets := make(map[time.Time]*meanAcc)
	for _, r := range records {
		if r.UnitPrice == nil {
			continue
		}
		month := time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		acc, ok := buckets[month]
		if !ok {
			acc = &meanAcc{}
			buckets[month] = acc
		}
		acc.sum += *r.UnitPrice
		acc.count++
	}
	return seriesFromBuckets(key, buckets)
}

func seriesFromBuckets(key string, buckets map[time.Time]*meanAcc) domain.PriceSeries {
	points := make([]domain.PricePoint, 0, len(buckets))
	for month, acc := range buckets {
		if acc.count == 0 {
			continue
		}
		points = append(points, domain.PricePoint{
			Month: month,
			Price: acc.sum / float64(acc.count),
			Count: acc.count,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Month.Before(points[j].Month)
	})
	return domain.PriceSeries{Key: key, Points: points}
}

// MonthlyVolumeSeries sums the quantity of filtered rows per month and
// converts kilograms to tonnes
func MonthlyVolumeSeries(records []domain.ShipmentRecord, filter Predicate) []domain.VolumePoint {
	if filter == nil {
		filter = All
	}
	sums := make(map[time.Time]float64)
	for _, r := range records {
		if r.Date == nil || r.Quantity == nil || !filter(r) {
			continue
		}
		sums[MonthStart(*r.Date)] += *r.Quantity
	}

	points := make([]domain.VolumePoint, 0, len(sums))
	for month, kg := range sums {
		points = append(points, domain.VolumePoint{Month: month, Tonnes: kg / 1000})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Month.Before(points[j].Month)
	})
	return points
}

// Agg is the aggregation applied per group
type Agg int

const (
	AggMean Agg = iota
	AggSum
)

func (a Agg) String() string {
	switch a {
	case AggMean:
		return "mean"
	case AggSum:
		return "sum"
	default:
		return "agg(" + strconv.Itoa(int(a)) + ")"
	}
}

// GroupMetric is one group produced by TopKByMetric
type GroupMetric struct {
	Key   string
	Value float64
	Count int
}

// TopKByMetric groups records by groupKey, aggregates metric within each
// group and returns the first k groups ordered by value. Records with an
// empty key or a nil metric are ignored, so groups without any value are
// absent. Ties are broken by key. k <= 0 returns every group.
func TopKByMetric[R any](records []R, groupKey func(R) string, metric func(R) *float64, agg Agg, k int, ascending bool) []GroupMetric {
	groups := make(map[string]*meanAcc)
	for _, r := range records {
		key := groupKey(r)
		if key == "" {
			continue
		}
		v := metric(r)
		if v == nil {
			continue
		}
		acc, ok := groups[key]
		if !ok {
			acc = &meanAcc{}
			groups[key] = acc
		}
		acc.sum += *v
		acc.count++
	}

	out := make([]GroupMetric, 0, len(groups))
	for key, acc := range groups {
		value := acc.sum
		if agg == AggMean {
			value = acc.sum / float64(acc.count)
		}
		out = append(out, GroupMetric{Key: key, Value: value, Count: acc.count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if ascending {
				return out[i].Value < out[j].Value
			}
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// LatestCIF averages the unit price of the last window rows in ledger
// order, ignoring missing prices
func LatestCIF(records []domain.ShipmentRecord, window int) (float64, bool) {
	start := 0
	if window > 0 && len(records) > window {
		start = len(records) - window
	}
	var acc meanAcc
	for _, r := range records[start:] {
		if r.UnitPrice == nil {
			continue
		}
		acc.sum += *r.UnitPrice
		acc.count++
	}
	if acc.count == 0 {
		return 0, false
	}
	return acc.sum / float64(acc.count), true
}

// TotalTonnes sums the quantity of filtered rows in tonnes
func TotalTonnes(records []domain.ShipmentRecord, filter Predicate) float64 {
	if filter == nil {
		filter = All
	}
	var kg float64
	for _, r := range records {
		if r.Quantity != nil && filter(r) {
			kg += *r.Quantity
		}
	}
	return kg / 1000
}
