package writer

import (
	"context"
	"fmt"
)

const sessionsTable = "stream_sessions"

var sessionColumns = []string{
	"session_id",
	"market_id",
	"started_at",
	"ended_at",
	"ticks_sent",
	"ticks_dropped",
	"end_reason",
}

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS stream_sessions (
	session_id    TEXT PRIMARY KEY,
	market_id     TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	ticks_sent    BIGINT NOT NULL DEFAULT 0,
	ticks_dropped BIGINT NOT NULL DEFAULT 0,
	end_reason    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS stream_sessions_market_idx ON stream_sessions (market_id, started_at);
`

// EnsureSchema creates the stream_sessions table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create %s: %w", sessionsTable, err)
	}
	return nil
}
