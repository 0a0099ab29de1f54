// Package writer persists finished stream sessions.
//
// SessionWriter accepts records from streaming sessions without blocking,
// batches them, and appends them to the stream_sessions table. Inserts are
// append-only; a replayed session id is ignored by the primary key.
package writer
