// Package pulse computes heuristic smart-money signals.
//
// Every function in this package is pure: no I/O, no shared state, and inputs are never mutated.
// The scores are approximations for display, not trading signals.
package pulse
