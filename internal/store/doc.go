// Package store defines the persistence contracts consumed by the service
// layer: collection hierarchy access, content metadata and association
// rows, taxonomy/audience reference lookup, and user accounts.
//
// All interfaces are context-first and expose a WithTx method so that a
// service can run several operations inside one database transaction via
// RunInTransaction. Implementations live in internal/platform/postgres.
package store
