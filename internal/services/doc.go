// Package services wires the pipeline stages together. A PipelineContext
// is built once per process and holds the configuration, the adapters and
// the cache; every dashboard view is recomputed from it per call.
//
// # Stages
//
//	Ledger Loader + Source Adapters → Cache → Aggregation → {Forecast, Ranking}
//
// The only fatal condition is a missing ledger, which NewPipelineContext
// reports before any request is served. Adapter failures degrade to
// Unavailable results and the affected tables render empty.
//
// # Testing
//
// TradeSource and VesselSource are interfaces so tests can substitute
// testify mocks for the HTTP adapters.
package services
