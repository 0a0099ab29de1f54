// Package api provides the Polymarket REST client.
//
// REST endpoints:
//   - CLOB: https://clob.polymarket.com (orderbook snapshots)
//   - Gamma: https://gamma-api.polymarket.com (market metadata)
//
// Numeric fields arrive as JSON numbers or numeric strings and are coerced on read.
package api
