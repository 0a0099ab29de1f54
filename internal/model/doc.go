// Package model defines shared value types used across the PolyAlpha signal service.
//
// Conventions:
//   - Prices: float64 probabilities in [0, 1]
//   - Sizes and notional values: float64 shares / USD
//   - Event timestamps on the wire: int64 milliseconds since Unix epoch
package model
