package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/meghatales/bookstore/internal/blobstore"
	"github.com/meghatales/bookstore/internal/docstore"
	"github.com/meghatales/bookstore/internal/events"
	"github.com/meghatales/bookstore/internal/logging"
)

// LibraryHandler owns the PDF library and the education study materials:
// public listings, the admin upload flow and the file-serving route.
type LibraryHandler struct {
	Store    docstore.Store
	Blobs    blobstore.Store
	Producer *events.Producer
}

func (h *LibraryHandler) GetPDFs(c echo.Context) error {
	var filters []docstore.Filter
	if genre := c.QueryParam("genre"); genre != "" && genre != "All" {
		filters = append(filters, docstore.Eq("genre", genre))
	}

	recs, err := h.Store.Query(c.Request().Context(), ColPDFs, filters,
		&docstore.Order{Field: "title"}, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *LibraryHandler) GetStudyMaterials(c echo.Context) error {
	var filters []docstore.Filter
	if subject := c.QueryParam("subject"); subject != "" && subject != "All" {
		filters = append(filters, docstore.Eq("subject", subject))
	}

	recs, err := h.Store.Query(c.Request().Context(), ColStudyMaterials, filters,
		&docstore.Order{Field: "title"}, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

// UploadPDF stores the file in the blob store, then writes the matching
// metadata document with the returned URL. Multipart fields: file, title,
// genre.
func (h *LibraryHandler) UploadPDF(c echo.Context) error {
	return h.upload(c, ColPDFs, "pdfs")
}

// UploadStudyMaterial is the education section's variant of the same flow;
// it additionally records a subject.
func (h *LibraryHandler) UploadStudyMaterial(c echo.Context) error {
	return h.upload(c, ColStudyMaterials, "materials")
}

func (h *LibraryHandler) upload(c echo.Context, collection, prefix string) error {
	title := c.FormValue("title")
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	ctx := c.Request().Context()
	log := logging.FromContext(ctx)

	id := uuid.NewString()
	blobPath := prefix + "/" + id + path.Ext(fh.Filename)

	fileURL, err := h.Blobs.Upload(ctx, blobPath, src, fh.Size, func(written, total int64) {
		if total > 0 && written == total {
			log.Info("upload complete", "path", blobPath, "bytes", written)
		}
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rec := docstore.Record{
		"id":    id,
		"title": title,
		"genre": c.FormValue("genre"),
		"url":   fileURL,
		"path":  blobPath,
	}
	if subject := c.FormValue("subject"); subject != "" {
		rec["subject"] = subject
	}

	if err := h.Store.Put(ctx, collection, id, rec); err != nil {
		// metadata write failed, do not leave an orphaned blob behind
		if derr := h.Blobs.Delete(ctx, blobPath); derr != nil {
			log.Error("orphaned blob cleanup failed", "path", blobPath, "error", derr)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, events.TopicCatalogEvents, id, map[string]any{
		"type":       "pdf_uploaded",
		"collection": collection,
		"docID":      id,
		"title":      title,
	})

	return c.JSON(http.StatusCreated, rec)
}

func (h *LibraryHandler) DeletePDF(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	rec, err := h.Store.Get(ctx, ColPDFs, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if blobPath, ok := rec["path"].(string); ok && blobPath != "" {
		if err := h.Blobs.Delete(ctx, blobPath); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if err := h.Store.Delete(ctx, ColPDFs, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ServeFile streams a stored blob back. The :path param carries the escaped
// blob path that Upload encoded into the URL.
func (h *LibraryHandler) ServeFile(c echo.Context) error {
	raw := c.Param("path")
	blobPath, err := url.PathUnescape(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad file path")
	}

	rc, err := h.Blobs.Open(c.Request().Context(), blobPath)
	if errors.Is(err, blobstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if path.Ext(blobPath) == ".pdf" {
		contentType = "application/pdf"
	}
	return c.Stream(http.StatusOK, contentType, rc)
}
