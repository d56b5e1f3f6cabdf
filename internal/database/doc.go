// Package database stores the media catalog: users and the photos they own.
//
// Repository is the storage contract used by the indexer, the derivative
// backfill and the HTTP handlers. Two implementations are provided:
//
//   - Database: SQLite via mattn/go-sqlite3, WAL mode, the default.
//   - Postgres: PostgreSQL via a pgx connection pool, selected by DATABASE_URL.
//
// Photos are never updated by the indexer; a file that changes name shows up
// as one insert and one delete. UpdatePhoto exists for captions and moves.
package database
