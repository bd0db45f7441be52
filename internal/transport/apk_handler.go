package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/middleware"
	"github.com/wadieregaieg/waadiefr/internal/repository"
	"github.com/wadieregaieg/waadiefr/internal/service"
)

// maxAPKSize caps upload size at 200 MB.
const maxAPKSize = 200 << 20

// APKHandler handles HTTP requests for companion app releases.
type APKHandler struct {
	apks   service.APKService
	logger *zap.Logger
}

// NewAPKHandler creates a new APKHandler.
func NewAPKHandler(apks service.APKService, logger *zap.Logger) *APKHandler {
	return &APKHandler{apks: apks, logger: logger}
}

// RegisterRoutes registers APK routes. Update checks and downloads are
// public so old clients can recover; management is admin-only.
func (h *APKHandler) RegisterRoutes(r chi.Router, auth, admin func(http.Handler) http.Handler) {
	r.Route("/api/apk", func(r chi.Router) {
		r.Get("/latest", h.Latest)
		r.Get("/check", h.CheckUpdate)
		r.Get("/download/{version}", h.Download)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Use(admin)
			r.Post("/", h.Upload)
			r.Get("/", h.List)
			r.Delete("/{version}", h.Deactivate)
		})
	})
}

// Upload registers a new release from a multipart form with the file
// under "apk" and metadata fields alongside.
func (h *APKHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAPKSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("apk")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing apk file")
		return
	}
	defer file.Close()

	forceUpdate, _ := strconv.ParseBool(r.FormValue("force_update"))

	release, err := h.apks.Upload(
		r.Context(),
		r.FormValue("version"),
		r.FormValue("release_notes"),
		forceUpdate,
		r.FormValue("minimum_supported_version"),
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVersion),
			errors.Is(err, service.ErrVersionNotNewer):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrAPKVersionAlreadyExists):
			middleware.RespondWithError(w, http.StatusConflict, "version already exists")
		default:
			h.logger.Error("apk upload failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to upload release")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, release)
}

// Latest returns the release clients should download.
func (h *APKHandler) Latest(w http.ResponseWriter, r *http.Request) {
	release, err := h.apks.Latest(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrAPKVersionNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "no release available")
			return
		}
		h.logger.Error("latest release lookup failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load release")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, release)
}

// List returns every registered release.
func (h *APKHandler) List(w http.ResponseWriter, r *http.Request) {
	releases, err := h.apks.List(r.Context())
	if err != nil {
		h.logger.Error("release listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list releases")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, releases)
}

// CheckUpdate tells a client whether to update given its version.
func (h *APKHandler) CheckUpdate(w http.ResponseWriter, r *http.Request) {
	current := r.URL.Query().Get("version")

	check, err := h.apks.CheckUpdate(r.Context(), current)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVersion) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("update check failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to check for updates")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, check)
}

// Download streams an active release file.
func (h *APKHandler) Download(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	path, err := h.apks.FilePath(r.Context(), version)
	if err != nil {
		if errors.Is(err, repository.ErrAPKVersionNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "release not found")
			return
		}
		h.logger.Error("release download failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to serve release")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.android.package-archive")
	w.Header().Set("Content-Disposition", "attachment; filename=freshk-"+version+".apk")
	http.ServeFile(w, r, path)
}

// Deactivate withdraws a release.
func (h *APKHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	if err := h.apks.Deactivate(r.Context(), version); err != nil {
		if errors.Is(err, repository.ErrAPKVersionNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "release not found")
			return
		}
		h.logger.Error("release deactivation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to deactivate release")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "release deactivated"})
}
