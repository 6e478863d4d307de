// Package http implements the JSON and CSV API over the pipeline.
//
// Handlers are thin: they parse query parameters, call the pipeline and
// render the result. Every failure goes through errors.ErrorHandler and is
// returned as RFC 7807 problem details, so an invalid grade, origin or
// horizon yields a 400 with a details array naming each field.
//
// Routes, mounted under /api by the application:
//
//	GET  /dashboard?grade=RBS&origins=GH,CI&horizon=3
//	GET  /prices/forecast?grade=&horizon=
//	GET  /rankings/buy?origins=
//	GET  /rankings/sell
//	GET  /vessels?limit=
//	GET  /imports/volume
//	GET  /health, /health/live, /health/ready, /version
//	GET  /cache/stats
//	POST /cache/invalidate
//
// The ranking, series and vessel routes also accept format=csv and then
// respond with a CSV attachment built by the exporter package.
package http
