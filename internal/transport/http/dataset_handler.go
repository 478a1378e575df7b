package http

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "regpulse/internal/errors"
	"regpulse/pkg/contracts/domain"
)

// DatasetHandler serves the dataset upload and dashboard endpoints.
type DatasetHandler struct {
	service  DashboardService
	errors   *apperrors.ErrorHandler
	logger   *slog.Logger
	maxBytes int64
}

// NewDatasetHandler creates a dataset handler.
func NewDatasetHandler(service DashboardService, errorHandler *apperrors.ErrorHandler, logger *slog.Logger, maxBytes int64) *DatasetHandler {
	return &DatasetHandler{
		service:  service,
		errors:   errorHandler,
		logger:   logger.With(slog.String("handler", "dataset")),
		maxBytes: maxBytes,
	}
}

// Routes mounts the dataset endpoints.
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Route("/{datasetID}", func(r chi.Router) {
		r.Get("/", h.Summary)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/events/{event}", h.EventDrilldown)
		r.Get("/export", h.Export)
	})
	return r
}

// Upload ingests a registration export. The file arrives as the multipart
// form field "file"; a raw CSV body is accepted as a fallback.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	filename, content, err := h.readUpload(r)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Load(r.Context(), filename, content)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

func (h *DatasetHandler) readUpload(r *http.Request) (string, []byte, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if strings.HasPrefix(contentType, "multipart/") {
		file, header, err := r.FormFile("file")
		if err != nil {
			if isBodyTooLarge(err) {
				return "", nil, apperrors.ErrPayloadTooLarge
			}
			return "", nil, apperrors.ErrValidation("file", `multipart upload must carry a "file" field`)
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			if isBodyTooLarge(err) {
				return "", nil, apperrors.ErrPayloadTooLarge
			}
			return "", nil, apperrors.NewStorageError("failed to read uploaded file", err)
		}
		return header.Filename, content, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			return "", nil, apperrors.ErrPayloadTooLarge
		}
		return "", nil, apperrors.NewStorageError("failed to read request body", err)
	}
	return "upload.csv", content, nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Summary returns the upload summary of a loaded dataset, facets included.
func (h *DatasetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")

	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Dashboard returns the full aggregation snapshot for the filter selection
// given in the query string.
func (h *DatasetHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	sel := selectionFromQuery(r.URL.Query())

	snap, err := h.service.Snapshot(r.Context(), id, sel)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// EventDrilldown returns the per-event view.
func (h *DatasetHandler) EventDrilldown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	event, err := url.PathUnescape(chi.URLParam(r, "event"))
	if err != nil {
		h.errors.HandleError(w, r, apperrors.NewAppValidationError("event name is not valid URL encoding"))
		return
	}
	sel := selectionFromQuery(r.URL.Query())

	dd, err := h.service.Drilldown(r.Context(), id, event, sel)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, dd)
}

// Export streams the filtered subset as a CSV attachment.
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "datasetID")
	sel := selectionFromQuery(r.URL.Query())

	data, filename, err := h.service.Export(r.Context(), id, sel)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// selectionFromQuery builds a FilterSelection from query parameters.
// college and year repeat; from and to are single ISO dates.
func selectionFromQuery(q url.Values) domain.FilterSelection {
	return domain.FilterSelection{
		Colleges: cleanValues(q["college"]),
		Years:    cleanValues(q["year"]),
		From:     strings.TrimSpace(q.Get("from")),
		To:       strings.TrimSpace(q.Get("to")),
	}
}

func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
