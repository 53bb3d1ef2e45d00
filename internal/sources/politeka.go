package sources

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/olekros/zvistka/internal/models"
)

var politekaPageRe = regexp.MustCompile(`([?&])page=(\d+)`)

// Politeka handles politeka.net. The newsfeed paginates with ?page=N; entries
// carry their date as text next to the post.
type Politeka struct {
	baseURL string
}

func NewPoliteka() *Politeka {
	return &Politeka{baseURL: "https://politeka.net"}
}

func (p *Politeka) Name() string { return "politeka" }

func (p *Politeka) Matches(url string) bool {
	return strings.Contains(url, "politeka.net")
}

func (p *Politeka) ExtractListing(markup, pageURL string) (ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ListingPage{}, &ExtractionError{URL: pageURL, Reason: "unparsable markup"}
	}

	container := doc.Find("div.col-lg-8")
	if container.Length() == 0 {
		return ListingPage{}, &ExtractionError{URL: pageURL, Reason: "newsfeed column not found"}
	}

	var stubs []models.Stub
	container.Find("div.b_post").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("div.b_post--media a").First()
		if link.Length() == 0 {
			link = sel.Find("a.b_post--image").First()
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		title := CleanText(sel.Find("div.b_post--title, h3, h2").First().Text())
		if title == "" {
			title = CleanText(link.AttrOr("title", ""))
		}
		stubs = append(stubs, models.Stub{
			URL:         NormalizeURL(href, p.baseURL),
			Title:       title,
			PublishedAt: ParseDateText(sel.Find("div.b_post--date").First().Text()),
		})
	})

	return ListingPage{Stubs: stubs, NextURL: p.nextPage(pageURL)}, nil
}

func (p *Politeka) ExtractArticle(markup, articleURL string) (models.ArticleFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return models.ArticleFields{}, &ExtractionError{URL: articleURL, Reason: "unparsable markup"}
	}

	var body string
	for _, selector := range []string{".article_text", ".post_content", ".content", ".article_body"} {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			body = CleanText(sel.Text())
			break
		}
	}

	fields := models.ArticleFields{
		Title:    CleanText(doc.Find("h1").First().Text()),
		BodyText: body,
		Images:   collectImages(doc, p.baseURL),
		Videos:   collectVideos(doc, p.baseURL),
	}
	if fields.Title == "" && fields.BodyText == "" {
		return models.ArticleFields{}, &ExtractionError{URL: articleURL, Reason: "neither title nor body found"}
	}

	fields.PublishedAt = extractPageDate(doc)
	return fields, nil
}

func (p *Politeka) nextPage(pageURL string) string {
	if m := politekaPageRe.FindStringSubmatch(pageURL); m != nil {
		n, _ := strconv.Atoi(m[2])
		return politekaPageRe.ReplaceAllString(pageURL, fmt.Sprintf("${1}page=%d", n+1))
	}
	sep := "?"
	if strings.Contains(pageURL, "?") {
		sep = "&"
	}
	return pageURL + sep + "page=2"
}
