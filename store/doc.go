// Package store provides SQLite-backed durable storage for auction journals.
//
// Every event the engine accepts is appended to the events table before the
// engine commits it, so replaying a journal in seq order rebuilds the engine
// exactly. Payloads are canonical CBOR.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait on lock contention
//   - foreign_keys=ON: events must belong to a known auction
//   - single open connection: SQLite has one writer
package store
