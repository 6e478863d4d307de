package domain

// BuyOption is an origin with its estimated FOB price in USD per tonne.
// Buy tables are ordered cheapest first.
type BuyOption struct {
	Origin   string  `json:"origin"`
	ISO      string  `json:"iso"`
	FOBPrice float64 `json:"fob_usd_per_t"`
}

// SellOption is an importer with the mean price it paid and its total volume.
// Sell tables are ordered by AvgPrice, highest first.
type SellOption struct {
	Importer      string  `json:"buyer"`
	AvgPrice      float64 `json:"avg_usd_per_t"`
	TotalQuantity float64 `json:"volume_kg"`
}

// OriginVolume is the imported tonnage attributed to one country of origin
type OriginVolume struct {
	Country string  `json:"country"`
	Tonnes  float64 `json:"tonnes"`
}
