package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/events"
	"github.com/ednovo/shelf-api/internal/platform/logger"
	"github.com/ednovo/shelf-api/internal/store"
)

// assetCleanupEventType matches the task type the background runner handles
// for removing a deleted course's stored attachments.
const assetCleanupEventType = "asset_cleanup"

// CourseServiceError is a custom error type for course service errors.
type CourseServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CourseServiceError.
func (e *CourseServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("course service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("course service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CourseServiceError) Unwrap() error {
	return e.Err
}

// NewCourseServiceError creates a new CourseServiceError.
func NewCourseServiceError(operation, message string, err error) *CourseServiceError {
	return &CourseServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// CourseInput carries the caller-supplied fields for course creation.
// Sharing and collection type are never taken from the caller; courses are
// created private under the acting user's shelf unconditionally.
type CourseInput struct {
	Title           string
	TaxonomyCourses []int64
	Audiences       []int64
}

// CoursePatch carries a partial update. Nil fields are absent from the
// patch and leave the current value untouched; a non-nil pointer to an
// empty slice is an explicit clear of that association set.
type CoursePatch struct {
	Title           *string
	Sharing         *domain.Sharing
	Position        *int
	TaxonomyCourses *[]int64
	Audiences       *[]int64
}

// CourseDetail is the read model for a course: the structural node plus its
// metadata bag merged in at read time.
type CourseDetail struct {
	Collection *domain.Collection
	Meta       *domain.ContentMeta
}

// CourseService orchestrates the course lifecycle: shelf resolution,
// structural creation under the shelf, metadata reconciliation, and
// sibling resequencing. Every mutating operation is one atomic unit of
// work; either all of its structural, metadata, and sequence writes commit
// together or none do.
type CourseService interface {
	// CreateCourse validates the input and, if valid, creates a course
	// under the acting user's shelf (creating the shelf first if the user
	// has none). Validation failures come back as a populated FieldErrors
	// with a nil collection and no state change.
	CreateCourse(ctx context.Context, input CourseInput, actingUser *domain.User) (*domain.Collection, domain.FieldErrors, error)

	// UpdateCourse applies a partial update to an existing course:
	// metadata reconciliation for the association lists present in the
	// patch, field updates, and finally a sequence move when the patch
	// carries a position.
	UpdateCourse(ctx context.Context, id uuid.UUID, patch CoursePatch, actingUser *domain.User) (domain.FieldErrors, error)

	// GetCourse retrieves one course with its metadata merged in.
	GetCourse(ctx context.Context, id uuid.UUID) (*CourseDetail, error)

	// ListCourses returns the owner's courses sitting under a shelf,
	// ordered by position and paginated, each with metadata merged in.
	ListCourses(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*CourseDetail, error)

	// DeleteCourse removes a course after authorization and pre-delete
	// validation, contracting the shelf sequence before the structural
	// delete.
	DeleteCourse(ctx context.Context, id uuid.UUID, actingUser *domain.User) error
}

// courseServiceImpl implements the CourseService interface.
type courseServiceImpl struct {
	db          *sql.DB
	collections store.CollectionStore
	contents    store.ContentStore
	taxonomy    store.TaxonomyStore
	authorizer  OperationAuthorizer
	validator   DeleteValidator
	emitter     events.EventEmitter
	logger      *slog.Logger
}

// NewCourseService creates a new CourseService.
// It returns an error if any of the required dependencies are nil. The
// event emitter is optional; a nil emitter disables post-delete cleanup
// events.
func NewCourseService(
	db *sql.DB,
	collections store.CollectionStore,
	contents store.ContentStore,
	taxonomy store.TaxonomyStore,
	authorizer OperationAuthorizer,
	validator DeleteValidator,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (CourseService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if collections == nil {
		return nil, domain.NewValidationError("collections", "cannot be nil", domain.ErrValidation)
	}
	if contents == nil {
		return nil, domain.NewValidationError("contents", "cannot be nil", domain.ErrValidation)
	}
	if taxonomy == nil {
		return nil, domain.NewValidationError("taxonomy", "cannot be nil", domain.ErrValidation)
	}
	if authorizer == nil {
		return nil, domain.NewValidationError("authorizer", "cannot be nil", domain.ErrValidation)
	}
	if validator == nil {
		return nil, domain.NewValidationError("validator", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &courseServiceImpl{
		db:          db,
		collections: collections,
		contents:    contents,
		taxonomy:    taxonomy,
		authorizer:  authorizer,
		validator:   validator,
		emitter:     emitter,
		logger:      logger.With(slog.String("component", "course_service")),
	}, nil
}

// CreateCourse implements CourseService.CreateCourse
func (s *courseServiceImpl) CreateCourse(
	ctx context.Context,
	input CourseInput,
	actingUser *domain.User,
) (*domain.Collection, domain.FieldErrors, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var fieldErrs domain.FieldErrors
	if strings.TrimSpace(input.Title) == "" {
		fieldErrs.Add("title", "title is required")
	}
	if fieldErrs.HasErrors() {
		log.Debug("course creation rejected by validation",
			slog.Int("error_count", len(fieldErrs)))
		return nil, fieldErrs, nil
	}

	var course *domain.Collection
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txCollections := s.collections.WithTx(tx)
		txContents := s.contents.WithTx(tx)
		hierarchy := NewCollectionService(txCollections, txContents, s.logger)
		engine := NewMetaEngine(txContents, s.taxonomy.WithTx(tx), s.logger)

		shelf, err := s.ensureShelf(ctx, txCollections, actingUser.ID)
		if err != nil {
			return NewCourseServiceError("create_course", "failed to resolve shelf", err)
		}

		course, err = domain.NewCourse(strings.TrimSpace(input.Title), actingUser.ID, shelf)
		if err != nil {
			return NewCourseServiceError("create_course", "failed to construct course", err)
		}

		if err := hierarchy.Create(ctx, course); err != nil {
			return NewCourseServiceError("create_course", "failed to create course node", err)
		}

		meta := domain.NewContentMeta(course.ContentID)
		meta.Summary = domain.CourseSummary

		taxTags, err := engine.Reconcile(ctx, course.ContentID, domain.AssocTaxonomyCourse, input.TaxonomyCourses)
		if err != nil {
			return NewCourseServiceError("create_course", "failed to reconcile taxonomy tags", err)
		}
		if err := meta.SetTags(domain.AssocTaxonomyCourse, taxTags); err != nil {
			return err
		}

		audTags, err := engine.Reconcile(ctx, course.ContentID, domain.AssocAudience, input.Audiences)
		if err != nil {
			return NewCourseServiceError("create_course", "failed to reconcile audience tags", err)
		}
		if err := meta.SetTags(domain.AssocAudience, audTags); err != nil {
			return err
		}

		if err := txContents.SaveMeta(ctx, meta); err != nil {
			return NewCourseServiceError("create_course", "failed to save metadata", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info("course created",
		slog.String("course_id", course.ID.String()),
		slog.String("owner_id", actingUser.ID.String()))
	return course, nil, nil
}

// ensureShelf resolves the owner's shelf, creating it if this is the
// owner's first course. A concurrent creator can win the insert race;
// CreateShelf reports that as ErrShelfExists without aborting the
// transaction, so the follow-up lookup here runs on a live transaction and
// finds the winner's row.
func (s *courseServiceImpl) ensureShelf(
	ctx context.Context,
	collections store.CollectionStore,
	ownerID uuid.UUID,
) (*domain.Collection, error) {
	shelf, err := collections.GetByOwnerAndType(ctx, ownerID, domain.TypeShelf)
	if err == nil {
		return shelf, nil
	}
	if !errors.Is(err, store.ErrCollectionNotFound) {
		return nil, err
	}

	shelf, err = domain.NewShelf(ownerID)
	if err != nil {
		return nil, err
	}

	if err := collections.CreateShelf(ctx, shelf); err != nil {
		if errors.Is(err, store.ErrShelfExists) {
			return collections.GetByOwnerAndType(ctx, ownerID, domain.TypeShelf)
		}
		return nil, err
	}

	return shelf, nil
}

// UpdateCourse implements CourseService.UpdateCourse
func (s *courseServiceImpl) UpdateCourse(
	ctx context.Context,
	id uuid.UUID,
	patch CoursePatch,
	actingUser *domain.User,
) (domain.FieldErrors, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var fieldErrs domain.FieldErrors
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		fieldErrs.Add("title", "title cannot be empty")
	}
	if patch.Sharing != nil && !patch.Sharing.IsValid() {
		fieldErrs.Add("sharing", "unknown sharing setting")
	}
	if fieldErrs.HasErrors() {
		return fieldErrs, nil
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txCollections := s.collections.WithTx(tx)
		txContents := s.contents.WithTx(tx)
		engine := NewMetaEngine(txContents, s.taxonomy.WithTx(tx), s.logger)
		sequence := NewSequenceManager(txCollections, s.logger)

		course, err := txCollections.GetByIDAndType(ctx, id, domain.TypeCourse)
		if err != nil {
			if errors.Is(err, store.ErrCollectionNotFound) {
				return store.ErrCourseNotFound
			}
			return NewCourseServiceError("update_course", "failed to load course", err)
		}

		shelf, err := txCollections.GetByOwnerAndType(ctx, actingUser.ID, domain.TypeShelf)
		if err != nil {
			if errors.Is(err, store.ErrCollectionNotFound) {
				return store.ErrShelfNotFound
			}
			return NewCourseServiceError("update_course", "failed to resolve shelf", err)
		}

		if patch.TaxonomyCourses != nil || patch.Audiences != nil {
			meta, err := txContents.GetMeta(ctx, course.ContentID)
			if err != nil {
				if !errors.Is(err, store.ErrContentMetaNotFound) {
					return NewCourseServiceError("update_course", "failed to load metadata", err)
				}
				meta = domain.NewContentMeta(course.ContentID)
				meta.Summary = domain.CourseSummary
			}

			if patch.TaxonomyCourses != nil {
				tags, err := engine.Reconcile(ctx, course.ContentID, domain.AssocTaxonomyCourse, *patch.TaxonomyCourses)
				if err != nil {
					return NewCourseServiceError("update_course", "failed to reconcile taxonomy tags", err)
				}
				if err := meta.SetTags(domain.AssocTaxonomyCourse, tags); err != nil {
					return err
				}
			}

			if patch.Audiences != nil {
				tags, err := engine.Reconcile(ctx, course.ContentID, domain.AssocAudience, *patch.Audiences)
				if err != nil {
					return NewCourseServiceError("update_course", "failed to reconcile audience tags", err)
				}
				if err := meta.SetTags(domain.AssocAudience, tags); err != nil {
					return err
				}
			}

			if err := txContents.SaveMeta(ctx, meta); err != nil {
				return NewCourseServiceError("update_course", "failed to save metadata", err)
			}
		}

		if patch.Title != nil || patch.Sharing != nil {
			if patch.Title != nil {
				course.Title = strings.TrimSpace(*patch.Title)
			}
			if patch.Sharing != nil {
				course.Sharing = *patch.Sharing
			}
			course.Touch()
			if err := txCollections.Update(ctx, course); err != nil {
				return NewCourseServiceError("update_course", "failed to update course fields", err)
			}
		}

		if patch.Position != nil {
			if err := sequence.Move(ctx, shelf.ID, course.ID, *patch.Position); err != nil {
				return NewCourseServiceError("update_course", "failed to move course", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("course updated", slog.String("course_id", id.String()))
	return nil, nil
}

// GetCourse implements CourseService.GetCourse
func (s *courseServiceImpl) GetCourse(ctx context.Context, id uuid.UUID) (*CourseDetail, error) {
	course, err := s.collections.GetByIDAndType(ctx, id, domain.TypeCourse)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, store.ErrCourseNotFound
		}
		return nil, NewCourseServiceError("get_course", "failed to load course", err)
	}

	meta, err := s.contents.GetMeta(ctx, course.ContentID)
	if err != nil {
		if !errors.Is(err, store.ErrContentMetaNotFound) {
			return nil, NewCourseServiceError("get_course", "failed to load metadata", err)
		}
		meta = domain.NewContentMeta(course.ContentID)
	}

	return &CourseDetail{Collection: course, Meta: meta}, nil
}

// ListCourses implements CourseService.ListCourses
func (s *courseServiceImpl) ListCourses(
	ctx context.Context,
	ownerID uuid.UUID,
	limit, offset int,
) ([]*CourseDetail, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	courses, err := s.collections.List(ctx, store.CollectionFilters{
		Type:       domain.TypeCourse,
		ParentType: domain.TypeShelf,
		OwnerID:    ownerID,
	}, limit, offset)
	if err != nil {
		return nil, NewCourseServiceError("list_courses", "failed to list courses", err)
	}

	details := make([]*CourseDetail, 0, len(courses))
	for _, course := range courses {
		meta, err := s.contents.GetMeta(ctx, course.ContentID)
		if err != nil {
			if !errors.Is(err, store.ErrContentMetaNotFound) {
				return nil, NewCourseServiceError("list_courses", "failed to load metadata", err)
			}
			meta = domain.NewContentMeta(course.ContentID)
		}
		details = append(details, &CourseDetail{Collection: course, Meta: meta})
	}

	log.Debug("courses listed",
		slog.String("owner_id", ownerID.String()),
		slog.Int("count", len(details)))
	return details, nil
}

// DeleteCourse implements CourseService.DeleteCourse
// The step order is fixed: authorization, pre-delete validation, sequence
// contraction, structural delete. Any failure rolls back the whole unit.
func (s *courseServiceImpl) DeleteCourse(ctx context.Context, id uuid.UUID, actingUser *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txCollections := s.collections.WithTx(tx)
		hierarchy := NewCollectionService(txCollections, s.contents.WithTx(tx), s.logger)
		sequence := NewSequenceManager(txCollections, s.logger)

		course, err := txCollections.GetByIDAndType(ctx, id, domain.TypeCourse)
		if err != nil {
			if errors.Is(err, store.ErrCollectionNotFound) {
				return store.ErrCourseNotFound
			}
			return NewCourseServiceError("delete_course", "failed to load course", err)
		}

		allowed, err := s.authorizer.WithTx(tx).HasUnrestrictedAccess(ctx, course, actingUser)
		if err != nil {
			return NewCourseServiceError("delete_course", "authorization check failed", err)
		}
		if !allowed {
			return ErrForbidden
		}

		if err := s.validator.WithTx(tx).ValidateDelete(ctx, course); err != nil {
			return err
		}

		shelf, err := txCollections.GetByOwnerAndType(ctx, actingUser.ID, domain.TypeShelf)
		if err != nil {
			if errors.Is(err, store.ErrCollectionNotFound) {
				return store.ErrShelfNotFound
			}
			return NewCourseServiceError("delete_course", "failed to resolve shelf", err)
		}

		if err := sequence.Remove(ctx, shelf.ID, course.ID); err != nil {
			return NewCourseServiceError("delete_course", "failed to contract sequence", err)
		}

		if err := hierarchy.Delete(ctx, course.ID); err != nil {
			return NewCourseServiceError("delete_course", "failed to delete course node", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info("course deleted",
		slog.String("course_id", id.String()),
		slog.String("acting_user_id", actingUser.ID.String()))

	// The structural delete has committed; asset removal happens out of
	// band. A failed emission leaves orphaned files at worst, so it is
	// logged and swallowed.
	if s.emitter != nil {
		event, err := events.NewTaskRequestEvent(assetCleanupEventType, struct {
			CourseID string `json:"course_id"`
		}{CourseID: id.String()})
		if err != nil {
			log.Error("failed to build asset cleanup event",
				slog.String("error", err.Error()),
				slog.String("course_id", id.String()))
			return nil
		}
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			log.Error("failed to emit asset cleanup event",
				slog.String("error", err.Error()),
				slog.String("course_id", id.String()))
		}
	}
	return nil
}
