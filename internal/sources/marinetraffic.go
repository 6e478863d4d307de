package sources

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"rcnpulse/internal/config"
	"rcnpulse/pkg/contracts/domain"
)

// MarineTrafficSource is the vessel-tracking adapter
const MarineTrafficSource = "marinetraffic"

// etaLayouts are the timestamp shapes seen in the vessel feed
var etaLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
}

// MarineTrafficClient lists vessels expected at the destination port
type MarineTrafficClient struct {
	http         *httpClient
	baseURL      string
	apiKey       string
	portID       string
	defaultLimit int
}

// NewMarineTrafficClient creates the adapter. An empty API key disables it.
func NewMarineTrafficClient(cfg config.MarineTrafficConfig, opts ...Option) *MarineTrafficClient {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = config.DefaultVesselLimit
	}
	return &MarineTrafficClient{
		http:         newHTTPClient(MarineTrafficSource, cfg.Timeout, cfg.MaxRetries, cfg.RetryBackoff, opts...),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		portID:       cfg.PortID,
		defaultLimit: limit,
	}
}

// Enabled reports whether an access token is configured
func (c *MarineTrafficClient) Enabled() bool {
	return c.apiKey != ""
}

// FetchVesselArrivals returns at most limit vessels in feed order. A limit
// of zero or less uses the configured default.
func (c *MarineTrafficClient) FetchVesselArrivals(ctx context.Context, limit int) Result[[]domain.VesselRecord] {
	if !c.Enabled() {
		return UnavailableResult[[]domain.VesselRecord](ReasonDisabled)
	}
	if limit <= 0 {
		limit = c.defaultLimit
	}

	start := time.Now()
	res := c.fetch(ctx, limit)
	c.http.observe(ctx, res.Status, start)

	if !res.OK() {
		c.http.logger.WarnContext(ctx, "vessel feed unavailable",
			slog.String("port_id", c.portID),
			slog.String("reason", res.Reason))
	}
	return res
}

func (c *MarineTrafficClient) fetch(ctx context.Context, limit int) Result[[]domain.VesselRecord] {
	url := c.baseURL + "/" + c.apiKey + "/portid:" + c.portID + "?protocol=json"
	body, err := c.http.get(ctx, url)
	if err != nil {
		return UnavailableResult[[]domain.VesselRecord](failureReason(err))
	}

	vessels, ok := parseVessels(body, limit)
	if !ok {
		return UnavailableResult[[]domain.VesselRecord](ReasonMalformed)
	}
	return AvailableResult(vessels)
}

// parseVessels reads a JSON array of vessel objects. Non-object entries are
// skipped and an unparseable ETA leaves the record with a nil ETA.
func parseVessels(body []byte, limit int) ([]domain.VesselRecord, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, false
	}

	vessels := make([]domain.VesselRecord, 0, limit)
	root.ForEach(func(_, v gjson.Result) bool {
		if len(vessels) >= limit {
			return false
		}
		if !v.IsObject() {
			return true
		}
		vessels = append(vessels, domain.VesselRecord{
			VesselName:       v.Get("SHIPNAME").String(),
			ETA:              parseETA(v.Get("ETA").String()),
			LastPort:         v.Get("LAST_PORT_NAME").String(),
			CargoDescription: v.Get("CARGO_TYPE_SUMMARY").String(),
		})
		return true
	})
	return vessels, true
}

func parseETA(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range etaLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.Time(t.UTC())
		}
	}
	return nil
}
