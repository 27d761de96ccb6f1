// Package postgres provides PostgreSQL implementations of the store
// interfaces using the pgx stdlib driver over database/sql.
//
// Every store accepts a store.DBTX so it can run against either a pooled
// connection or a transaction; WithTx returns a transaction-scoped clone.
// Database errors are translated to the sentinel errors in
// internal/store via MapError.
package postgres
