package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Collection-specific validation errors
var (
	// ErrCollectionIDEmpty is returned when a collection ID is empty or nil.
	ErrCollectionIDEmpty = errors.New("collection ID cannot be empty")

	// ErrCollectionOwnerEmpty is returned when a collection's owner ID is empty or nil.
	ErrCollectionOwnerEmpty = errors.New("collection owner ID cannot be empty")

	// ErrCollectionTitleEmpty is returned when a collection's title is empty.
	ErrCollectionTitleEmpty = errors.New("collection title cannot be empty")

	// ErrCourseParentEmpty is returned when a course has no parent shelf.
	ErrCourseParentEmpty = errors.New("course must have a parent shelf")
)

// CollectionType identifies the kind of node in the collection hierarchy.
type CollectionType string

// Known collection types. Only shelves and the courses nested under them
// are managed end-to-end by this service; other types pass through the
// generic hierarchy operations untouched.
const (
	TypeShelf  CollectionType = "shelf"
	TypeCourse CollectionType = "course"
	TypeFolder CollectionType = "folder"
)

// IsValid reports whether the collection type is a known value.
func (t CollectionType) IsValid() bool {
	switch t {
	case TypeShelf, TypeCourse, TypeFolder:
		return true
	}
	return false
}

// Sharing controls the visibility of a collection.
type Sharing string

// Known sharing settings.
const (
	SharingPrivate        Sharing = "private"
	SharingPublic         Sharing = "public"
	SharingAnyoneWithLink Sharing = "anyonewithlink"
)

// IsValid reports whether the sharing setting is a known value.
func (s Sharing) IsValid() bool {
	switch s {
	case SharingPrivate, SharingPublic, SharingAnyoneWithLink:
		return true
	}
	return false
}

// Collection represents a node in the content hierarchy. A shelf is the
// implicit root collection owned by one user; courses are its children,
// ordered among their siblings by Position. Every collection owns exactly
// one backing content record, referenced by ContentID.
type Collection struct {
	ID        uuid.UUID      `json:"id"`
	ContentID uuid.UUID      `json:"content_id"`
	OwnerID   uuid.UUID      `json:"owner_id"`
	ParentID  *uuid.UUID     `json:"parent_id,omitempty"`
	Type      CollectionType `json:"collection_type"`
	Title     string         `json:"title"`
	Sharing   Sharing        `json:"sharing"`
	Position  int            `json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewShelf creates the root collection for one owning party. Shelves are
// private, carry their type as title, and have no parent. The ID and the
// backing content record are assigned here; persistence is the caller's
// concern.
func NewShelf(ownerID uuid.UUID) (*Collection, error) {
	now := time.Now().UTC()
	shelf := &Collection{
		ID:        uuid.New(),
		ContentID: uuid.New(),
		OwnerID:   ownerID,
		Type:      TypeShelf,
		Title:     string(TypeShelf),
		Sharing:   SharingPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := shelf.Validate(); err != nil {
		return nil, err
	}

	return shelf, nil
}

// NewCourse creates a course collection under the given shelf. Sharing and
// type are fixed here regardless of what the caller supplied: courses are
// always created private, and callers cannot choose the collection type.
func NewCourse(title string, ownerID uuid.UUID, shelf *Collection) (*Collection, error) {
	if shelf == nil {
		return nil, ErrCourseParentEmpty
	}

	now := time.Now().UTC()
	parentID := shelf.ID
	course := &Collection{
		ID:        uuid.New(),
		ContentID: uuid.New(),
		OwnerID:   ownerID,
		ParentID:  &parentID,
		Type:      TypeCourse,
		Title:     title,
		Sharing:   SharingPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := course.Validate(); err != nil {
		return nil, err
	}

	return course, nil
}

// Validate checks if the Collection has valid data.
// Returns an error if any field fails validation.
func (c *Collection) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCollectionIDEmpty
	}

	if c.OwnerID == uuid.Nil {
		return ErrCollectionOwnerEmpty
	}

	if c.Title == "" {
		return ErrCollectionTitleEmpty
	}

	if !c.Type.IsValid() {
		return ErrInvalidCollectionType
	}

	if !c.Sharing.IsValid() {
		return ErrInvalidSharing
	}

	if c.Type == TypeCourse && (c.ParentID == nil || *c.ParentID == uuid.Nil) {
		return ErrCourseParentEmpty
	}

	return nil
}

// IsShelf reports whether the collection is a shelf.
func (c *Collection) IsShelf() bool {
	return c.Type == TypeShelf
}

// Touch updates the UpdatedAt timestamp.
func (c *Collection) Touch() {
	c.UpdatedAt = time.Now().UTC()
}
