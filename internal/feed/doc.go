// Package feed implements the upstream trade feed connection and the subscription registry.
//
// The Manager:
//   - Owns the single process-wide WebSocket connection to the Polymarket realtime feed
//   - Connects lazily on first subscribe and reconnects after a fixed delay, forever
//   - Re-sends one subscribe frame per registered market after every (re)connect
//   - Runs one dispatcher goroutine per live connection that parses frames and fans them
//     out through the Registry
//
// The Registry multiplexes any number of local handlers onto one upstream subscription per
// market. Handlers run synchronously on the dispatcher goroutine and must not block.
package feed
