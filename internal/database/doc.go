// Package database opens the PostgreSQL pool that backs the stream session
// audit table.
package database
