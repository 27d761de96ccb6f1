package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ednovo/shelf-api/internal/api/shared"
	"github.com/ednovo/shelf-api/internal/platform/assets"
	"github.com/ednovo/shelf-api/internal/service"
	"github.com/ednovo/shelf-api/internal/store"
)

// maxAssetSize bounds a single uploaded attachment (16 MiB).
const maxAssetSize = 16 << 20

// AssetHandler handles course attachment uploads and removal.
type AssetHandler struct {
	courseService service.CourseService
	userStore     store.UserStore
	assetStore    assets.AssetStore
	logger        *slog.Logger
}

// NewAssetHandler creates a new AssetHandler with the given dependencies.
func NewAssetHandler(
	courseService service.CourseService,
	userStore store.UserStore,
	assetStore assets.AssetStore,
	logger *slog.Logger,
) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetHandler{
		courseService: courseService,
		userStore:     userStore,
		assetStore:    assetStore,
		logger:        logger.With(slog.String("component", "asset_handler")),
	}
}

// UploadAsset handles POST /api/courses/{id}/assets. The attachment is
// sent as multipart form data under the "file" field and stored under a
// per-course prefix.
func (h *AssetHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// The course must exist and belong to the uploader
	detail, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if detail.Collection.OwnerID != user.ID && !user.Admin {
		HandleAPIError(w, r, service.ErrForbidden, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAssetSize)
	if err := r.ParseMultipartForm(maxAssetSize); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid or oversized upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read upload", err)
		return
	}

	if err := h.assetStore.Save(r.Context(), id.String(), header.Filename, data); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to store asset", err)
		return
	}

	h.logger.Info("asset stored",
		slog.String("course_id", id.String()),
		slog.String("file_name", header.Filename),
		slog.Int("size", len(data)))

	shared.RespondWithJSON(w, r, http.StatusCreated, map[string]string{
		"course_id": id.String(),
		"file_name": header.Filename,
	})
}

// DeleteAssets handles DELETE /api/courses/{id}/assets: it removes every
// attachment stored under the course's prefix.
func (h *AssetHandler) DeleteAssets(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
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
	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if detail.Collection.OwnerID != user.ID && !user.Admin {
		HandleAPIError(w, r, service.ErrForbidden, "")
		return
	}

	if err := h.assetStore.DeletePrefix(r.Context(), id.String()); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to delete assets", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
