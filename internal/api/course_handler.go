package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/api/shared"
	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/platform/logger"
	"github.com/ednovo/shelf-api/internal/service"
	"github.com/ednovo/shelf-api/internal/store"
)

// Pagination defaults for course listings.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CourseHandler handles course lifecycle API requests.
type CourseHandler struct {
	courseService service.CourseService
	userStore     store.UserStore
	logger        *slog.Logger
}

// NewCourseHandler creates a new CourseHandler with the given dependencies.
func NewCourseHandler(
	courseService service.CourseService,
	userStore store.UserStore,
	logger *slog.Logger,
) *CourseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseHandler{
		courseService: courseService,
		userStore:     userStore,
		logger:        logger.With(slog.String("component", "course_handler")),
	}
}

// actingUser loads the authenticated user for the request. It writes the
// error response itself when the user cannot be resolved.
func (h *CourseHandler) actingUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}
	return user, true
}

// CreateCourse handles POST /api/courses.
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	var req CreateCourseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	course, fieldErrs, err := h.courseService.CreateCourse(r.Context(), service.CourseInput{
		Title:           req.Title,
		TaxonomyCourses: req.TaxonomyCourses,
		Audiences:       req.Audiences,
	}, user)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create course")
		return
	}
	if fieldErrs.HasErrors() {
		RespondWithFieldErrors(w, r, fieldErrs)
		return
	}

	log.Info("course created via API",
		slog.String("course_id", course.ID.String()),
		slog.String("user_id", user.ID.String()))

	detail, err := h.courseService.GetCourse(r.Context(), course.ID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, newCourseResponse(detail))
}

// GetCourse handles GET /api/courses/{id}.
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actingUser(w, r); !ok {
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	detail, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newCourseResponse(detail))
}

// ListCourses handles GET /api/courses. Results are scoped to the acting
// user's shelf unless an explicit owner_id query parameter is given.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	ownerID := user.ID
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid owner_id")
			return
		}
		ownerID = parsed
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryInt(r, "offset", 0)

	details, err := h.courseService.ListCourses(r.Context(), ownerID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list courses")
		return
	}

	courses := make([]CourseResponse, 0, len(details))
	for _, d := range details {
		courses = append(courses, newCourseResponse(d))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CourseListResponse{
		Courses: courses,
		Limit:   limit,
		Offset:  offset,
	})
}

// UpdateCourse handles PUT /api/courses/{id}.
func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateCourseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	patch := service.CoursePatch{
		Title:           req.Title,
		Position:        req.Position,
		TaxonomyCourses: req.TaxonomyCourses,
		Audiences:       req.Audiences,
	}
	if req.Sharing != nil {
		sharing := domain.Sharing(*req.Sharing)
		patch.Sharing = &sharing
	}

	fieldErrs, err := h.courseService.UpdateCourse(r.Context(), id, patch, user)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if fieldErrs.HasErrors() {
		RespondWithFieldErrors(w, r, fieldErrs)
		return
	}

	detail, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newCourseResponse(detail))
}

// DeleteCourse handles DELETE /api/courses/{id}.
func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.courseService.DeleteCourse(r.Context(), id, user); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("course deleted via API",
		slog.String("course_id", id.String()),
		slog.String("user_id", user.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// queryInt parses an integer query parameter, returning def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
