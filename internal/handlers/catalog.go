package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/meghatales/bookstore/internal/clock"
	"github.com/meghatales/bookstore/internal/docstore"
	"github.com/meghatales/bookstore/internal/events"
	"github.com/meghatales/bookstore/internal/search"
)

// Catalog collections. The storefront sections each read one of these.
const (
	ColBooks            = "books"
	ColPDFs             = "pdfs"
	ColMagazinePosts    = "magazinePosts"
	ColStudyMaterials   = "studyMaterials"
	ColEducationalBooks = "educationalBooks"
)

type CatalogHandler struct {
	Store    docstore.Store
	Search   *search.Service
	Producer *events.Producer
	Clock    clock.Clock
}

func (h *CatalogHandler) GetBook(c echo.Context) error {
	rec, err := h.Store.Get(c.Request().Context(), ColBooks, c.Param("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

// GetBooks lists the bookstore section, optionally narrowed to one genre.
func (h *CatalogHandler) GetBooks(c echo.Context) error {
	var filters []docstore.Filter
	if genre := c.QueryParam("genre"); genre != "" && genre != "All" {
		filters = append(filters, docstore.Eq("genre", genre))
	}
	limit := parseIntDefault(c.QueryParam("limit"), 0)

	recs, err := h.Store.Query(c.Request().Context(), ColBooks, filters,
		&docstore.Order{Field: "title"}, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *CatalogHandler) CreateBook(c echo.Context) error {
	var req struct {
		Title       string  `json:"title"`
		Author      string  `json:"author"`
		Genre       string  `json:"genre"`
		Price       float64 `json:"price"`
		Description string  `json:"description"`
		CoverURL    string  `json:"cover_url"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" || req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "title required, price must not be negative")
	}

	id := uuid.NewString()
	rec := docstore.Record{
		"id":          id,
		"title":       req.Title,
		"author":      req.Author,
		"genre":       req.Genre,
		"price":       req.Price,
		"description": req.Description,
		"coverUrl":    req.CoverURL,
	}
	if err := h.Store.Put(c.Request().Context(), ColBooks, id, rec); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.indexBook(c, id, req.Title, req.Author, req.Genre, req.Description, req.Price, req.CoverURL)
	publish(c, h.Producer, events.TopicCatalogEvents, id, map[string]any{
		"type":   "book_created",
		"bookID": id,
		"title":  req.Title,
	})

	return c.JSON(http.StatusCreated, rec)
}

func (h *CatalogHandler) PatchBook(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	rec, err := h.Store.Get(ctx, ColBooks, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req map[string]any
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	for _, field := range []string{"title", "author", "genre", "description", "coverUrl"} {
		if v, ok := req[field]; ok {
			s, ok := v.(string)
			if !ok {
				return echo.NewHTTPError(http.StatusBadRequest, field+" must be a string")
			}
			rec[field] = s
		}
	}
	if v, ok := req["price"]; ok {
		price, ok := v.(float64)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be a number")
		}
		if price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
		}
		rec["price"] = price
	}

	if err := h.Store.Put(ctx, ColBooks, id, rec); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	title, _ := rec["title"].(string)
	author, _ := rec["author"].(string)
	genre, _ := rec["genre"].(string)
	desc, _ := rec["description"].(string)
	cover, _ := rec["coverUrl"].(string)
	price, _ := rec["price"].(float64)
	h.indexBook(c, id, title, author, genre, desc, price, cover)

	publish(c, h.Producer, events.TopicCatalogEvents, id, map[string]any{
		"type":   "book_updated",
		"bookID": id,
	})

	return c.JSON(http.StatusOK, rec)
}

func (h *CatalogHandler) DeleteBook(c echo.Context) error {
	id := c.Param("id")
	if err := h.Store.Delete(c.Request().Context(), ColBooks, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Search != nil {
		if err := h.Search.DeleteBook(c.Request().Context(), id); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}

	publish(c, h.Producer, events.TopicCatalogEvents, id, map[string]any{
		"type":   "book_deleted",
		"bookID": id,
	})
	return c.NoContent(http.StatusNoContent)
}

// GetMagazinePosts lists the magazine section, newest first, optionally
// narrowed to one content type (Photo, Blog, Feature Article, Story).
func (h *CatalogHandler) GetMagazinePosts(c echo.Context) error {
	var filters []docstore.Filter
	if typ := c.QueryParam("type"); typ != "" && typ != "All" {
		filters = append(filters, docstore.Eq("type", typ))
	}
	limit := parseIntDefault(c.QueryParam("limit"), 0)

	recs, err := h.Store.Query(c.Request().Context(), ColMagazinePosts, filters,
		&docstore.Order{Field: "publishedAt", Desc: true}, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *CatalogHandler) CreateMagazinePost(c echo.Context) error {
	var req struct {
		Title    string `json:"title"`
		Type     string `json:"type"`
		Author   string `json:"author"`
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" || req.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and type required")
	}

	id := uuid.NewString()
	rec := docstore.Record{
		"id":          id,
		"title":       req.Title,
		"type":        req.Type,
		"author":      req.Author,
		"content":     req.Content,
		"imageUrl":    req.ImageURL,
		"publishedAt": h.Clock.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	if err := h.Store.Put(c.Request().Context(), ColMagazinePosts, id, rec); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, events.TopicCatalogEvents, id, map[string]any{
		"type":   "magazine_post_created",
		"postID": id,
	})
	return c.JSON(http.StatusCreated, rec)
}

func (h *CatalogHandler) DeleteMagazinePost(c echo.Context) error {
	id := c.Param("id")
	if err := h.Store.Delete(c.Request().Context(), ColMagazinePosts, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// GetEducationalBooks lists the education section's physical books.
func (h *CatalogHandler) GetEducationalBooks(c echo.Context) error {
	var filters []docstore.Filter
	if subject := c.QueryParam("subject"); subject != "" && subject != "All" {
		filters = append(filters, docstore.Eq("subject", subject))
	}

	recs, err := h.Store.Query(c.Request().Context(), ColEducationalBooks, filters,
		&docstore.Order{Field: "title"}, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *CatalogHandler) indexBook(c echo.Context, id, title, author, genre, desc string, price float64, cover string) {
	if h.Search == nil {
		return
	}
	doc := search.BookDoc{
		ID:          id,
		Title:       title,
		Author:      author,
		Genre:       genre,
		Description: desc,
		Price:       price,
		CoverURL:    cover,
	}
	if err := h.Search.IndexBook(c.Request().Context(), doc); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}
