package http

import (
	"context"
	"errors"
	"net/http"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/service"

	"github.com/gin-gonic/gin"
)

type CatalogService interface {
	Feed(ctx context.Context, viewer service.Viewer, params service.FeedParams) (service.FeedView, error)
	NextPage(ctx context.Context, viewer service.Viewer, params service.FeedParams) (service.FeedView, error)
	Restart(ctx context.Context, viewer service.Viewer, params service.FeedParams) (service.FeedView, error)
	Convert(viewer service.Viewer, amount, currency string) (service.Conversion, error)
	WishlistCount(ctx context.Context, viewer service.Viewer) int64
}

type Handler struct {
	service CatalogService
}

func NewHandler(svc CatalogService) *Handler {
	return &Handler{service: svc}
}

type errorResponse struct {
	Error string `json:"error" example:"invalid category"`
}

type wishlistCountResponse struct {
	Count int64 `json:"count" example:"3"`
}

type categoriesResponse struct {
	Wildcard   catalog.Category   `json:"wildcard" example:"all"`
	Categories []catalog.Category `json:"categories"`
}

// GetFeed godoc
// @Summary      Current feed for the viewer
// @Description  Returns the cached feed for the filters, fetching the first page if nothing was fetched yet.
// @Tags         feed
// @Produce      json
// @Param        search    query     string  false  "Title substring"
// @Param        category  query     string  false  "Category or all"  default(all)
// @Param        currency  query     string  false  "Display currency code"
// @Param        X-Viewer-ID  header  string  false  "Anonymous viewer id"
// @Success      200  {object}  service.FeedView
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  service.FeedView
// @Router       /feed [get]
func (h *Handler) GetFeed(c *gin.Context) {
	view, err := h.service.Feed(c.Request.Context(), viewerFrom(c), feedParams(c))
	writeFeed(c, view, err)
}

// NextPage godoc
// @Summary      Fetch the next feed page
// @Tags         feed
// @Produce      json
// @Param        search    query     string  false  "Title substring"
// @Param        category  query     string  false  "Category or all"  default(all)
// @Param        currency  query     string  false  "Display currency code"
// @Success      200  {object}  service.FeedView
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  service.FeedView
// @Router       /feed/next [post]
func (h *Handler) NextPage(c *gin.Context) {
	view, err := h.service.NextPage(c.Request.Context(), viewerFrom(c), feedParams(c))
	writeFeed(c, view, err)
}

// RestartFeed godoc
// @Summary      Restart the feed from the first page
// @Tags         feed
// @Produce      json
// @Param        search    query     string  false  "Title substring"
// @Param        category  query     string  false  "Category or all"  default(all)
// @Param        currency  query     string  false  "Display currency code"
// @Success      200  {object}  service.FeedView
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      502  {object}  service.FeedView
// @Router       /feed/restart [post]
func (h *Handler) RestartFeed(c *gin.Context) {
	view, err := h.service.Restart(c.Request.Context(), viewerFrom(c), feedParams(c))
	writeFeed(c, view, err)
}

// WishlistCount godoc
// @Summary      Wishlist badge count
// @Description  Always succeeds; signed-out viewers and failed lookups report zero.
// @Tags         wishlist
// @Produce      json
// @Success      200  {object}  wishlistCountResponse
// @Router       /wishlist/count [get]
func (h *Handler) WishlistCount(c *gin.Context) {
	c.JSON(http.StatusOK, wishlistCountResponse{Count: h.service.WishlistCount(c.Request.Context(), viewerFrom(c))})
}

// Convert godoc
// @Summary      Convert a base-currency amount
// @Tags         currency
// @Produce      json
// @Param        amount    query     string  true   "Amount in base currency"
// @Param        currency  query     string  false  "Target currency code"
// @Success      200  {object}  service.Conversion
// @Failure      400  {object}  errorResponse
// @Router       /currency/convert [get]
func (h *Handler) Convert(c *gin.Context) {
	conv, err := h.service.Convert(viewerFrom(c), c.Query("amount"), c.Query("currency"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListCategories godoc
// @Summary      Product categories
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  categoriesResponse
// @Router       /categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, categoriesResponse{
		Wildcard:   catalog.CategoryAll,
		Categories: catalog.Categories(),
	})
}

func feedParams(c *gin.Context) service.FeedParams {
	return service.FeedParams{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Currency: c.Query("currency"),
	}
}

func writeFeed(c *gin.Context, view service.FeedView, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, catalog.ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, catalog.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "session expired"})
	case errors.Is(err, catalog.ErrStaleFeed):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, catalog.ErrFetchFailed):
		c.JSON(http.StatusBadGateway, view)
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load feed"})
	}
}
