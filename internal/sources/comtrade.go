package sources

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"rcnpulse/internal/config"
	"rcnpulse/pkg/contracts/domain"
)

// ComtradeSource is the bulk trade statistics adapter
const ComtradeSource = "comtrade"

// ComtradeClient fetches annual export statistics for the configured
// commodity from UN Comtrade
type ComtradeClient struct {
	http          *httpClient
	baseURL       string
	apiKey        string
	commodityCode string
	maxRecords    int
}

// NewComtradeClient creates the adapter. An empty API key yields a client
// whose every call is Unavailable with ReasonDisabled.
func NewComtradeClient(cfg config.ComtradeConfig, opts ...Option) *ComtradeClient {
	opts = append([]Option{WithRateLimit(cfg.RPS, cfg.Burst)}, opts...)
	return &ComtradeClient{
		http:          newHTTPClient(ComtradeSource, cfg.Timeout, cfg.MaxRetries, cfg.RetryBackoff, opts...),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		commodityCode: cfg.CommodityCode,
		maxRecords:    cfg.MaxRecords,
	}
}

// Enabled reports whether an access token is configured
func (c *ComtradeClient) Enabled() bool {
	return c.apiKey != ""
}

// FetchTradeRecords returns the sub-records reported by originISO for year.
// Sub-records without a positive quantity are dropped, so every returned
// record carries a unit price.
func (c *ComtradeClient) FetchTradeRecords(ctx context.Context, originISO string, year int) Result[[]domain.TradeRecord] {
	if !c.Enabled() {
		return UnavailableResult[[]domain.TradeRecord](ReasonDisabled)
	}
	if _, ok := config.LookupOrigin(originISO); !ok {
		return UnavailableResult[[]domain.TradeRecord](ReasonUnknownOrigin)
	}

	start := time.Now()
	res := c.fetch(ctx, originISO, year)
	c.http.observe(ctx, res.Status, start)

	if !res.OK() {
		c.http.logger.WarnContext(ctx, "trade statistics unavailable",
			slog.String("origin", originISO),
			slog.Int("year", year),
			slog.String("reason", res.Reason))
	}
	return res
}

func (c *ComtradeClient) fetch(ctx context.Context, originISO string, year int) Result[[]domain.TradeRecord] {
	body, err := c.http.get(ctx, c.requestURL(originISO, year))
	if err != nil {
		return UnavailableResult[[]domain.TradeRecord](failureReason(err))
	}

	records, ok := parseTradeRecords(body, originISO, year)
	if !ok {
		return UnavailableResult[[]domain.TradeRecord](ReasonMalformed)
	}
	return AvailableResult(records)
}

// FetchTradePrice returns the mean unit price over the valid sub-records
// of originISO for year. Unavailable when no sub-record has a positive
// quantity.
func (c *ComtradeClient) FetchTradePrice(ctx context.Context, originISO string, year int) Result[float64] {
	res := c.FetchTradeRecords(ctx, originISO, year)
	records, ok := res.Get()
	if !ok {
		return UnavailableResult[float64](res.Reason)
	}

	price, ok := MeanUnitPrice(records)
	if !ok {
		return UnavailableResult[float64](ReasonNoData)
	}
	return AvailableResult(price)
}

// FetchLatestPrice returns the unit price of the last valid sub-record,
// the figure shown as the "latest FOB" headline
func (c *ComtradeClient) FetchLatestPrice(ctx context.Context, originISO string, year int) Result[float64] {
	res := c.FetchTradeRecords(ctx, originISO, year)
	records, ok := res.Get()
	if !ok {
		return UnavailableResult[float64](res.Reason)
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].UnitPrice != nil {
			return AvailableResult(*records[i].UnitPrice)
		}
	}
	return UnavailableResult[float64](ReasonNoData)
}

func (c *ComtradeClient) requestURL(originISO string, year int) string {
	q := url.Values{}
	q.Set("max", strconv.Itoa(c.maxRecords))
	q.Set("r", originISO)
	q.Set("px", "HS")
	q.Set("cc", c.commodityCode)
	q.Set("ps", strconv.Itoa(year))
	q.Set("freq", "A")
	q.Set("type", "C")
	q.Set("token", c.apiKey)
	return c.baseURL + "/commtrade?" + q.Encode()
}

// parseTradeRecords reads {"data":[{"TradeValue":n,"qty":n},...]}. A body
// that is not a JSON object is malformed; a missing data array is an empty
// result.
func parseTradeRecords(body []byte, originISO string, year int) ([]domain.TradeRecord, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, false
	}

	data := root.Get("data")
	if data.Exists() && !data.IsArray() {
		return nil, false
	}

	var records []domain.TradeRecord
	data.ForEach(func(_, rec gjson.Result) bool {
		value := decimalField(rec.Get("TradeValue"))
		qty := decimalField(rec.Get("qty"))
		if !qty.IsPositive() {
			return true
		}

		unit, _ := value.DivRound(qty, 8).Float64()
		records = append(records, domain.TradeRecord{
			Origin:     originISO,
			Year:       year,
			TradeValue: value.InexactFloat64(),
			Quantity:   qty.InexactFloat64(),
			UnitPrice:  domain.Float(unit),
		})
		return true
	})
	return records, true
}

// decimalField accepts numbers and numeric strings; anything else is zero
func decimalField(v gjson.Result) decimal.Decimal {
	switch v.Type {
	case gjson.Number:
		if d, err := decimal.NewFromString(v.Raw); err == nil {
			return d
		}
		return decimal.NewFromFloat(v.Float())
	case gjson.String:
		if d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// MeanUnitPrice averages the unit prices of records that carry one
func MeanUnitPrice(records []domain.TradeRecord) (float64, bool) {
	sum := decimal.Zero
	n := 0
	for _, r := range records {
		if r.UnitPrice == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(*r.UnitPrice))
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum.Div(decimal.NewFromInt(int64(n))).InexactFloat64(), true
}
