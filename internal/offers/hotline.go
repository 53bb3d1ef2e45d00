package offers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/olekros/zvistka/internal/fetch"
	"github.com/olekros/zvistka/internal/logger"
	"github.com/olekros/zvistka/internal/models"
	"github.com/olekros/zvistka/internal/store"
)

const (
	hotlineBase    = "https://hotline.ua"
	hotlineGraphQL = "https://hotline.ua/svc/frontend-api/graphql"
	kyivCityID     = 370
)

// Sort orders accepted by GetOffers.
const (
	SortPrice     = "price"
	SortPriceDesc = "price_desc"
	SortShop      = "shop"
	SortShopDesc  = "shop_desc"
)

const offersQuery = `query getOffers($path: String!, $cityId: Int!) {
  byPathQueryProduct(path: $path, cityId: $cityId) {
    id
    offers(first: 1000) {
      totalCount
      edges {
        node {
          condition
          conditionId
          conversionUrl
          descriptionFull
          descriptionShort
          firmTitle
          price
          reviewsNegativeNumber
          reviewsPositiveNumber
        }
      }
    }
  }
}`

type tokenResponse struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

type offerNode struct {
	Condition             string      `json:"condition"`
	ConditionID           int         `json:"conditionId"`
	ConversionURL         string      `json:"conversionUrl"`
	DescriptionFull       string      `json:"descriptionFull"`
	DescriptionShort      string      `json:"descriptionShort"`
	FirmTitle             string      `json:"firmTitle"`
	Price                 interface{} `json:"price"`
	ReviewsNegativeNumber int         `json:"reviewsNegativeNumber"`
	ReviewsPositiveNumber int         `json:"reviewsPositiveNumber"`
}

type graphqlResponse struct {
	Data struct {
		ByPathQueryProduct struct {
			ID     int `json:"id"`
			Offers struct {
				TotalCount int `json:"totalCount"`
				Edges      []struct {
					Node offerNode `json:"node"`
				} `json:"edges"`
			} `json:"offers"`
		} `json:"byPathQueryProduct"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client scrapes price comparison offers for a single product page.
type Client struct {
	http           *resty.Client
	store          store.Store
	maxConcurrency int
}

func NewClient(userAgent string, timeout time.Duration, st store.Store, maxConcurrency int) *Client {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &Client{http: client, store: st, maxConcurrency: maxConcurrency}
}

// ExtractPath turns a product URL into the catalog path the API expects,
// stripping the host and any language prefix.
func ExtractPath(productURL string) (string, error) {
	rest := productURL
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = strings.TrimPrefix(rest, prefix)
			break
		}
	}
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "", fmt.Errorf("product URL %q has no path", productURL)
	}
	host := rest[:slash]
	if !strings.Contains(host, "hotline.ua") {
		return "", fmt.Errorf("unsupported product host %q", host)
	}
	path := rest[slash:]
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, lang := range []string{"/ua/", "/uk/", "/ru/", "/en/"} {
		if strings.HasPrefix(path, lang) {
			path = "/" + strings.TrimPrefix(path, lang)
			break
		}
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == "/" {
		return "", fmt.Errorf("product URL %q has an empty catalog path", productURL)
	}
	return path + "/", nil
}

func lastSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// GetOffers resolves the product token, queries the offers API and returns a
// snapshot sorted by the requested order. Offers with malformed or
// non-positive prices are skipped individually.
func (c *Client) GetOffers(ctx context.Context, productURL, sortBy string, limit int) (models.OfferSnapshot, error) {
	path, err := ExtractPath(productURL)
	if err != nil {
		return models.OfferSnapshot{}, err
	}

	token, err := c.fetchToken(ctx, path)
	if err != nil {
		return models.OfferSnapshot{}, err
	}

	nodes, total, err := c.queryOffers(ctx, path, token)
	if err != nil {
		return models.OfferSnapshot{}, err
	}

	offers := make([]models.Offer, 0, len(nodes))
	for _, node := range nodes {
		offer, ok := buildOffer(node)
		if !ok {
			logger.Get().Debug().Str("shop", node.FirmTitle).Msg("Skipping offer with invalid price")
			continue
		}
		offers = append(offers, offer)
	}

	c.resolveOriginalURLs(ctx, offers)
	sortOffers(offers, sortBy)
	if limit > 0 && len(offers) > limit {
		offers = offers[:limit]
	}

	snapshot := models.OfferSnapshot{
		ProductURL:  productURL,
		Offers:      offers,
		TotalOffers: total,
		ParsedAt:    time.Now().UTC(),
	}
	if c.store != nil {
		if err := c.store.SaveSnapshot(ctx, snapshot); err != nil {
			logger.Get().Error().Err(err).Str("product", productURL).Msg("Snapshot save failed")
		}
	}
	return snapshot, nil
}

func (c *Client) fetchToken(ctx context.Context, path string) (string, error) {
	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("url", path).
		SetResult(&tok).
		Get(hotlineBase + "/svc/frontend-api/v1/urlTypeDefiner/")
	if err != nil {
		return "", classifyOfferError(err, hotlineBase)
	}
	if !resp.IsSuccess() {
		return "", &fetch.Error{Kind: fetch.KindHTTPStatus, URL: hotlineBase, Status: resp.StatusCode()}
	}
	if tok.Type != "product-regular" {
		return "", fmt.Errorf("path %q is not a regular product page (type %q)", path, tok.Type)
	}
	if tok.Token == "" {
		return "", fmt.Errorf("empty access token for path %q", path)
	}
	return tok.Token, nil
}

func (c *Client) queryOffers(ctx context.Context, path, token string) ([]offerNode, int, error) {
	body := map[string]interface{}{
		"operationName": "getOffers",
		"query":         offersQuery,
		"variables": map[string]interface{}{
			"path":   lastSegment(path),
			"cityId": kyivCityID,
		},
	}

	var out graphqlResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-token", token).
		SetHeader("x-language", "uk").
		SetHeader("x-referer", hotlineBase+path).
		SetHeader("x-request-id", uuid.NewString()).
		SetBody(body).
		SetResult(&out).
		Post(hotlineGraphQL)
	if err != nil {
		return nil, 0, classifyOfferError(err, hotlineGraphQL)
	}
	if !resp.IsSuccess() {
		return nil, 0, &fetch.Error{Kind: fetch.KindHTTPStatus, URL: hotlineGraphQL, Status: resp.StatusCode()}
	}
	if len(out.Errors) > 0 {
		return nil, 0, fmt.Errorf("offers query failed: %s", out.Errors[0].Message)
	}

	edges := out.Data.ByPathQueryProduct.Offers.Edges
	nodes := make([]offerNode, 0, len(edges))
	for _, edge := range edges {
		nodes = append(nodes, edge.Node)
	}
	return nodes, out.Data.ByPathQueryProduct.Offers.TotalCount, nil
}

// buildOffer validates a raw node. Prices arrive as either numbers or
// strings with spaces as thousand separators. OriginalURL starts as the
// hotline redirect URL; resolution replaces it with the shop's own when it
// succeeds.
func buildOffer(node offerNode) (models.Offer, bool) {
	price, ok := parsePrice(node.Price)
	if !ok || price <= 0 {
		return models.Offer{}, false
	}

	title := strings.TrimSpace(node.DescriptionShort)
	if title == "" {
		title = strings.TrimSpace(node.DescriptionFull)
	}
	if title == "" {
		title = "Товар от " + node.FirmTitle
	}

	offerURL := hotlineBase + node.ConversionURL
	isNew := node.ConditionID == 0 || strings.EqualFold(strings.TrimSpace(node.Condition), "новый")
	return models.Offer{
		OfferURL:    offerURL,
		OriginalURL: offerURL,
		Title:       title,
		Shop:        node.FirmTitle,
		Price:       price,
		IsUsed:      !isNew,
	}, true
}

func parsePrice(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		cleaned := strings.ReplaceAll(v, " ", "")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		price, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return price, true
	default:
		return 0, false
	}
}

// resolveOriginalURLs follows each shop redirect to record the real store
// URL. Failures keep the hotline redirect URL, they never fail the snapshot.
func (c *Client) resolveOriginalURLs(ctx context.Context, offers []models.Offer) {
	noRedirect := resty.New().
		SetTimeout(10 * time.Second).
		SetRedirectPolicy(resty.NoRedirectPolicy()).
		SetHeader("User-Agent", c.http.Header.Get("User-Agent"))

	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup
	for i := range offers {
		if !strings.Contains(offers[i].OfferURL, "/go/price/") {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(offer *models.Offer) {
			defer wg.Done()
			defer func() { <-sem }()
			resp, err := noRedirect.R().SetContext(ctx).Get(offer.OfferURL)
			if err != nil && resp == nil {
				return
			}
			if resp.StatusCode() >= http.StatusMovedPermanently && resp.StatusCode() < http.StatusBadRequest {
				offer.OriginalURL = resp.Header().Get("Location")
			}
		}(&offers[i])
	}
	wg.Wait()
}

func sortOffers(offers []models.Offer, sortBy string) {
	switch sortBy {
	case SortPriceDesc:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price > offers[j].Price })
	case SortShop:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Shop < offers[j].Shop })
	case SortShopDesc:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Shop > offers[j].Shop })
	default:
		sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })
	}
}

func classifyOfferError(err error, url string) error {
	if fe := fetch.Classify(err, url); fe != nil {
		return fe
	}
	return err
}
