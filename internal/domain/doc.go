// Package domain defines the core business entities of the shelf API:
// collections (shelves and the courses nested under them), the content
// metadata attached to a collection, the external taxonomy and audience
// tags a course can be associated with, and the users that own shelves.
//
// Entities are created through New* constructors that validate their
// invariants and return sentinel errors on failure. The package has no
// dependencies on persistence or transport concerns.
package domain
