// Package ranking orders trading counterparties: origins to buy from by
// FOB price and importers to sell to by the price they pay.
package ranking

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"rcnpulse/internal/config"
	"rcnpulse/internal/dataprocessing"
	"rcnpulse/internal/infrastructure"
	"rcnpulse/internal/sources"
	"rcnpulse/pkg/contracts/domain"
)

// maxParallelFetches bounds concurrent price lookups
const maxParallelFetches = 4

// PriceFetcher returns the mean FOB unit price of an origin for a year
type PriceFetcher interface {
	FetchTradePrice(ctx context.Context, originISO string, year int) sources.Result[float64]
}

// BuyRanking fetches each origin's price concurrently and returns the
// available ones ordered cheapest first. An origin whose lookup fails is
// left out without affecting the others. Equal prices keep the input order.
func BuyRanking(ctx context.Context, fetcher PriceFetcher, origins []config.Origin, year int) []domain.BuyOption {
	logger := infrastructure.WithComponent(nil, "ranking")
	results := make([]sources.Result[float64], len(origins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, origin := range origins {
		g.Go(func() error {
			results[i] = fetcher.FetchTradePrice(gctx, origin.ISO, year)
			return nil
		})
	}
	_ = g.Wait()

	options := make([]domain.BuyOption, 0, len(origins))
	for i, res := range results {
		price, ok := res.Get()
		if !ok {
			logger.DebugContext(ctx, "origin excluded from buy ranking",
				slog.String("origin", origins[i].ISO),
				slog.String("reason", res.Reason))
			continue
		}
		options = append(options, domain.BuyOption{
			Origin:   origins[i].Name,
			ISO:      origins[i].ISO,
			FOBPrice: price,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].FOBPrice < options[j].FOBPrice
	})
	return options
}

// SellRanking groups shipments by importer and returns the top importers
// by mean unit price with their total quantity in kilograms
func SellRanking(shipments []domain.ShipmentRecord) []domain.SellOption {
	return SellRankingN(shipments, config.SellRankingLimit)
}

// SellRankingN is SellRanking with an explicit limit; k <= 0 keeps all
func SellRankingN(shipments []domain.ShipmentRecord, k int) []domain.SellOption {
	importer := func(r domain.ShipmentRecord) string { return r.Importer }

	prices := dataprocessing.TopKByMetric(shipments, importer,
		func(r domain.ShipmentRecord) *float64 { return r.UnitPrice },
		dataprocessing.AggMean, k, false)

	volumes := make(map[string]float64)
	for _, g := range dataprocessing.TopKByMetric(shipments, importer,
		func(r domain.ShipmentRecord) *float64 { return r.Quantity },
		dataprocessing.AggSum, 0, false) {
		volumes[g.Key] = g.Value
	}

	out := make([]domain.SellOption, len(prices))
	for i, g := range prices {
		out[i] = domain.SellOption{
			Importer:      g.Key,
			AvgPrice:      g.Value,
			TotalQuantity: volumes[g.Key],
		}
	}
	return out
}

// TopOrigins returns the k origin countries with the largest imported
// tonnage over the 365 days before now
func TopOrigins(shipments []domain.ShipmentRecord, now time.Time, k int) []domain.OriginVolume {
	since := dataprocessing.Since(now.AddDate(0, 0, -365))
	recent := make([]domain.ShipmentRecord, 0, len(shipments))
	for _, s := range shipments {
		if since(s) && !s.Date.After(now) {
			recent = append(recent, s)
		}
	}

	groups := dataprocessing.TopKByMetric(recent,
		func(r domain.ShipmentRecord) string { return r.OriginCountry },
		func(r domain.ShipmentRecord) *float64 { return r.Quantity },
		dataprocessing.AggSum, k, false)

	out := make([]domain.OriginVolume, len(groups))
	for i, g := range groups {
		out[i] = domain.OriginVolume{Country: g.Key, Tonnes: g.Value / 1000}
	}
	return out
}
