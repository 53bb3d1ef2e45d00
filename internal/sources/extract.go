package sources

import (
	"time"

	"github.com/PuerkitoBio/goquery"
)

// collectImages gathers every image URL in document order, deduplicated.
// Lazy-loading attributes are checked before src.
func collectImages(doc *goquery.Document, baseURL string) []string {
	var urls []string
	seen := make(map[string]struct{})
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			if src, ok = sel.Attr("data-src"); !ok || src == "" {
				if src, ok = sel.Attr("data-original"); !ok {
					return
				}
			}
		}
		if src == "" {
			return
		}
		url := NormalizeURL(src, baseURL)
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	})
	return urls
}

// collectVideos gathers embedded player and video sources.
func collectVideos(doc *goquery.Document, baseURL string) []string {
	var urls []string
	seen := make(map[string]struct{})
	doc.Find("video source, video[src], iframe[src]").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		url := NormalizeURL(src, baseURL)
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	})
	return urls
}

// extractPageDate finds the publication timestamp on an article page: a
// <time datetime> attribute first, then any date-ish element's text.
func extractPageDate(doc *goquery.Document) *time.Time {
	if attr, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, attr); err == nil {
			utc := t.UTC()
			return &utc
		}
		if parsed := ParseDateText(attr); parsed != nil {
			return parsed
		}
	}

	var found *time.Time
	doc.Find(`[class*="date"], [class*="time"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if parsed := ParseDateText(sel.Text()); parsed != nil {
			found = parsed
			return false
		}
		return true
	})
	return found
}
