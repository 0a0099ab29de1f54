// Package poller runs a fetch on a fixed interval and hands results to a handler.
//
// The Poller:
//   - Fetches immediately on start, then once per interval
//   - Bounds each fetch with a timeout
//   - Logs and absorbs fetch failures; the next tick tries again
//   - Optionally stops itself after a fixed number of polls
//
// Streaming sessions use it to refresh orderbook snapshots; the market detail
// stream uses it to push Gamma metadata.
package poller
