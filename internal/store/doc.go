// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the reminder engine, so engines run unchanged against PostgreSQL
// (internal/platform/postgres) or the in-memory store (store/memstore).
package store
