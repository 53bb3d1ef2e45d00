package sources

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/olekros/zvistka/internal/models"
)

// Epravda handles epravda.com.ua. Listings are daily archive pages
// (/news/date_DDMMYYYY/); each entry shows only a clock time, so the stub
// timestamp combines the page's date with that time.
type Epravda struct {
	baseURL string
	newsURL string
}

func NewEpravda() *Epravda {
	return &Epravda{
		baseURL: "https://epravda.com.ua",
		newsURL: "https://epravda.com.ua/news",
	}
}

func (e *Epravda) Name() string { return "epravda" }

func (e *Epravda) Matches(url string) bool {
	return strings.Contains(url, "epravda.com.ua")
}

func (e *Epravda) ExtractListing(markup, pageURL string) (ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ListingPage{}, &ExtractionError{URL: pageURL, Reason: "unparsable markup"}
	}

	container := doc.Find("div.section_articles_grid_wrapper")
	if container.Length() == 0 {
		return ListingPage{}, &ExtractionError{URL: pageURL, Reason: "articles grid not found"}
	}

	pageDate := e.pageDate(pageURL)

	var stubs []models.Stub
	container.Find("div.article_news").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("div.article_title a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		title := CleanText(link.Text())
		if title == "" {
			return
		}
		timeText := CleanText(sel.Find("div.article_date").First().Text())
		stubs = append(stubs, models.Stub{
			URL:         NormalizeURL(href, e.baseURL),
			Title:       title,
			PublishedAt: CombineDateTime(pageDate, timeText),
		})
	})

	return ListingPage{Stubs: stubs, NextURL: e.nextPage(pageURL)}, nil
}

func (e *Epravda) ExtractArticle(markup, articleURL string) (models.ArticleFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.ArticleFields{}, &ExtractionError{URL: articleURL, Reason: "unparsable markup"}
	}

	fields := models.ArticleFields{
		Title:    CleanText(doc.Find("h1").First().Text()),
		BodyText: CleanText(doc.Find("div.post_text, div.article_text").First().Text()),
		Images:   collectImages(doc, e.baseURL),
		Videos:   collectVideos(doc, e.baseURL),
	}
	if fields.Title == "" && fields.BodyText == "" {
		return models.ArticleFields{}, &ExtractionError{URL: articleURL, Reason: "neither title nor body found"}
	}

	fields.PublishedAt = extractPageDate(doc)
	return fields, nil
}

func (e *Epravda) nextPage(pageURL string) string {
	if d, ok := ParseDatePage(pageURL); ok {
		return e.newsURL + "/" + FormatDatePage(d.AddDate(0, 0, -1)) + "/"
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	return e.newsURL + "/" + FormatDatePage(yesterday) + "/"
}

// pageDate is the archive day this listing page covers; the live listing
// without a date segment covers today.
func (e *Epravda) pageDate(pageURL string) *time.Time {
	if d, ok := ParseDatePage(pageURL); ok {
		return &d
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return &today
}
