package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olekros/zvistka/internal/cache"
	"github.com/olekros/zvistka/internal/fetch"
	"github.com/olekros/zvistka/internal/logger"
	"github.com/olekros/zvistka/internal/middleware"
	"github.com/olekros/zvistka/internal/models"
	"github.com/olekros/zvistka/internal/news"
	"github.com/olekros/zvistka/internal/offers"
	"github.com/olekros/zvistka/internal/sources"
	"github.com/olekros/zvistka/internal/store"
)

// ParseQuery are the parameters of GET /news/parse.
type ParseQuery struct {
	URL       string `query:"url" validate:"required,url"`
	UntilDate string `query:"until_date" validate:"omitempty,datetime=2006-01-02"`
	Client    string `query:"client" validate:"omitempty,oneof=http browser"`
	Force     bool   `query:"force"`
}

// RecentQuery are the parameters of GET /news/recent.
type RecentQuery struct {
	Hours  int    `query:"hours" validate:"omitempty,min=1,max=168"`
	Source string `query:"source" validate:"omitempty,url"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// SearchQuery are the parameters of GET /news/search.
type SearchQuery struct {
	Q      string `query:"q" validate:"required,min=2"`
	Source string `query:"source" validate:"omitempty,url"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// OffersQuery are the parameters of GET /products/offers.
type OffersQuery struct {
	URL   string `query:"url" validate:"required,url"`
	Sort  string `query:"sort" validate:"omitempty,oneof=price price_desc shop shop_desc"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

type Handlers struct {
	news      *news.Service
	offers    *offers.Client
	freshness cache.Freshness
}

func NewHandlers(newsService *news.Service, offersClient *offers.Client, freshness cache.Freshness) *Handlers {
	return &Handlers{news: newsService, offers: offersClient, freshness: freshness}
}

// HealthCheck handles the /health endpoint.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ParseNews handles GET /api/v1/news/parse.
func (h *Handlers) ParseNews(c *fiber.Ctx) error {
	q := c.Locals(middleware.QueryParamsKey).(*ParseQuery)

	var cutoff *time.Time
	if q.UntilDate != "" {
		parsed, err := time.Parse("2006-01-02", q.UntilDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "until_date must be an ISO-8601 date",
			})
		}
		cutoff = &parsed
	}

	mode := fetch.Mode(q.Client)

	var result models.WalkResult
	var err error
	if q.Force {
		result, err = h.news.ForceRefresh(c.Context(), q.URL, cutoff, mode)
	} else {
		result, err = h.news.GetOrRefresh(c.Context(), q.URL, cutoff, mode)
	}
	if err != nil {
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"source":     result.Source,
		"status":     result.Status,
		"from_cache": result.FromCache,
		"pages":      result.Pages,
		"total":      len(result.Articles),
		"items":      result.Articles,
		"failures":   result.Failures,
	})
}

// RecentNews handles GET /api/v1/news/recent.
func (h *Handlers) RecentNews(c *fiber.Ctx) error {
	q := c.Locals(middleware.QueryParamsKey).(*RecentQuery)
	if q.Hours == 0 {
		q.Hours = 24
	}

	articles, err := h.news.Recent(c.Context(), q.Hours, q.Source, q.Limit)
	if err != nil {
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"hours": q.Hours,
		"total": len(articles),
		"items": articles,
	})
}

// SearchNews handles GET /api/v1/news/search.
func (h *Handlers) SearchNews(c *fiber.Ctx) error {
	q := c.Locals(middleware.QueryParamsKey).(*SearchQuery)

	articles, err := h.news.Search(c.Context(), q.Q, q.Source, q.Limit)
	if err != nil {
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"query": q.Q,
		"total": len(articles),
		"items": articles,
	})
}

// ProductOffers handles GET /api/v1/products/offers.
func (h *Handlers) ProductOffers(c *fiber.Ctx) error {
	q := c.Locals(middleware.QueryParamsKey).(*OffersQuery)

	snapshot, err := h.offers.GetOffers(c.Context(), q.URL, q.Sort, q.Limit)
	if err != nil {
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"product_url":  snapshot.ProductURL,
		"total_offers": snapshot.TotalOffers,
		"parsed_at":    snapshot.ParsedAt.Format(time.RFC3339),
		"items":        snapshot.Offers,
	})
}

// InvalidateFreshness handles DELETE /api/v1/admin/freshness. It drops the
// freshness markers for a source so the next request walks it again.
func (h *Handlers) InvalidateFreshness(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url query parameter is required",
		})
	}

	for _, mode := range []fetch.Mode{fetch.ModeHTTP, fetch.ModeBrowser} {
		if err := h.freshness.Invalidate(c.Context(), url, string(mode)); err != nil {
			return writeDomainError(c, err)
		}
	}

	logger.Get().Info().Str("source", url).Msg("Freshness markers invalidated")
	return c.JSON(fiber.Map{"invalidated": url})
}

// writeDomainError maps pipeline errors onto HTTP status codes.
func writeDomainError(c *fiber.Ctx, err error) error {
	log := logger.Get()

	if errors.Is(err, sources.ErrUnsupportedSource) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		log.Error().Err(err).Str("url", fetchErr.URL).Msg("Upstream fetch failed")
		status := fiber.StatusBadGateway
		if fetchErr.Kind == fetch.KindTimeout {
			status = fiber.StatusGatewayTimeout
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var extractErr *sources.ExtractionError
	if errors.As(err, &extractErr) {
		log.Error().Err(err).Str("url", extractErr.URL).Msg("Extraction failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		log.Error().Err(err).Str("op", storeErr.Op).Msg("Store operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Storage unavailable",
		})
	}

	log.Error().Err(err).Msg("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
