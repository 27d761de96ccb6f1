package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/store"
)

// OperationAuthorizer answers whether the acting user holds unrestricted
// access to a collection. The course orchestrator consumes only the
// yes/no answer; how the decision is made is this collaborator's concern.
type OperationAuthorizer interface {
	// HasUnrestrictedAccess reports whether user may perform destructive
	// operations on the collection.
	HasUnrestrictedAccess(ctx context.Context, c *domain.Collection, user *domain.User) (bool, error)

	// WithTx returns an authorizer bound to the provided transaction.
	WithTx(tx *sql.Tx) OperationAuthorizer
}

// DeleteValidator runs domain preconditions before a structural delete.
type DeleteValidator interface {
	// ValidateDelete returns ErrDeleteConflict (possibly wrapped) when the
	// collection cannot be deleted in its current state.
	ValidateDelete(ctx context.Context, c *domain.Collection) error

	// WithTx returns a validator bound to the provided transaction.
	WithTx(tx *sql.Tx) DeleteValidator
}

// OwnerAuthorizer grants unrestricted access to the collection's owner and
// to admins. It needs no storage access; the decision is made from the
// entities already in hand.
type OwnerAuthorizer struct{}

// NewOwnerAuthorizer creates an OwnerAuthorizer.
func NewOwnerAuthorizer() *OwnerAuthorizer {
	return &OwnerAuthorizer{}
}

var _ OperationAuthorizer = (*OwnerAuthorizer)(nil)

// HasUnrestrictedAccess implements OperationAuthorizer.
func (a *OwnerAuthorizer) HasUnrestrictedAccess(
	_ context.Context,
	c *domain.Collection,
	user *domain.User,
) (bool, error) {
	if c == nil || user == nil {
		return false, nil
	}
	return user.Admin || c.OwnerID == user.ID, nil
}

// WithTx implements OperationAuthorizer. The decision is storage-free, so
// the same instance serves inside and outside a transaction.
func (a *OwnerAuthorizer) WithTx(_ *sql.Tx) OperationAuthorizer {
	return a
}

// ChildGuardValidator rejects deleting a collection that still has child
// collections under it. Removing the parent first would orphan them.
type ChildGuardValidator struct {
	collections store.CollectionStore
}

// NewChildGuardValidator creates a ChildGuardValidator over the given store.
func NewChildGuardValidator(collections store.CollectionStore) *ChildGuardValidator {
	if collections == nil {
		panic("collections store cannot be nil")
	}
	return &ChildGuardValidator{collections: collections}
}

var _ DeleteValidator = (*ChildGuardValidator)(nil)

// ValidateDelete implements DeleteValidator.
func (v *ChildGuardValidator) ValidateDelete(ctx context.Context, c *domain.Collection) error {
	count, err := v.collections.CountChildren(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to count children of %s: %w", c.ID, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d child collections remain", ErrDeleteConflict, count)
	}
	return nil
}

// WithTx implements DeleteValidator.
func (v *ChildGuardValidator) WithTx(tx *sql.Tx) DeleteValidator {
	return &ChildGuardValidator{collections: v.collections.WithTx(tx)}
}
