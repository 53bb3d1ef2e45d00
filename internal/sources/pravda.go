package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/olekros/zvistka/internal/models"
)

var pravdaArticleDateRe = regexp.MustCompile(`/news/(\d{4})/(\d{1,2})/(\d{1,2})/`)

// Pravda handles pravda.com.ua. Listing archives live under
// /news/date_DDMMYYYY/; article URLs carry their publication date.
// Register after Epravda: the bare "pravda.com.ua" match would otherwise
// swallow epravda URLs too.
type Pravda struct {
	baseURL string
	newsURL string
}

func NewPravda() *Pravda {
	return &Pravda{
		baseURL: "https://www.pravda.com.ua",
		newsURL: "https://www.pravda.com.ua/news",
	}
}

func (p *Pravda) Name() string { return "pravda" }

func (p *Pravda) Matches(url string) bool {
	return strings.Contains(url, "pravda.com.ua")
}

func (p *Pravda) ExtractListing(markup, pageURL string) (ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ListingPage{}, &ExtractionError{URL: pageURL, Reason: "unparsable markup"}
	}

	container := doc.Find("div.container_sub_news_list_wrapper")
	if container.Length() == 0 {
		return ListingPage{}, &ExtractionError{URL: pageURL, Reason: "news list container not found"}
	}

	var stubs []models.Stub
	container.Find("div.article_news_list").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("div.article_content a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return // article URL is mandatory, skip this entry only
		}
		url := NormalizeURL(href, p.baseURL)
		stubs = append(stubs, models.Stub{
			URL:         url,
			Title:       CleanText(link.Text()),
			PublishedAt: p.dateFromArticleURL(url),
		})
	})

	return ListingPage{Stubs: stubs, NextURL: p.nextPage(pageURL)}, nil
}

func (p *Pravda) ExtractArticle(markup, articleURL string) (models.ArticleFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.ArticleFields{}, &ExtractionError{URL: articleURL, Reason: "unparsable markup"}
	}

	fields := models.ArticleFields{
		Title:    CleanText(doc.Find("h1").First().Text()),
		BodyText: CleanText(doc.Find("div.post_text").First().Text()),
		Images:   collectImages(doc, p.baseURL),
		Videos:   collectVideos(doc, p.baseURL),
	}
	if fields.Title == "" && fields.BodyText == "" {
		return models.ArticleFields{}, &ExtractionError{URL: articleURL, Reason: "neither title nor body found"}
	}

	fields.PublishedAt = extractPageDate(doc)
	if fields.PublishedAt == nil {
		fields.PublishedAt = p.dateFromArticleURL(articleURL)
	}
	return fields, nil
}

// nextPage derives the previous day's archive page. The plain listing shows
// today, so its successor is yesterday's archive.
func (p *Pravda) nextPage(pageURL string) string {
	if d, ok := ParseDatePage(pageURL); ok {
		return p.newsURL + "/" + FormatDatePage(d.AddDate(0, 0, -1)) + "/"
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	return p.newsURL + "/" + FormatDatePage(yesterday) + "/"
}

func (p *Pravda) dateFromArticleURL(url string) *time.Time {
	m := pravdaArticleDateRe.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}
