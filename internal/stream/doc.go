// Package stream serves one market's trades to one client as Server-Sent Events.
//
// Each Session owns its own trade ring, orderbook snapshot, refresh poller and
// heartbeat. Ticks arrive from the shared feed dispatcher through a bounded
// channel and are written by the session's own goroutine, so a slow client
// drops its own ticks without stalling other sessions.
package stream
