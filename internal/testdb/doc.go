// Package testdb opens a migrated PostgreSQL database for integration tests
// and isolates each test in a transaction that is always rolled back.
//
// Tests skip when no database URL is configured, except under CI where a
// missing database fails the run.
package testdb
