package scrape

import (
	"strings"
	"time"

	"github.com/olekros/zvistka/internal/models"
	"github.com/olekros/zvistka/internal/utils"
)

// ContentHash digests the whitespace-collapsed, case-preserved title and body.
// It detects content changes across refreshes without trusting timestamps.
func ContentHash(title, body string) string {
	collapsed := strings.Join(strings.Fields(title), " ") + "\n" + strings.Join(strings.Fields(body), " ")
	return utils.Hash(collapsed)
}

// BuildArticle merges a listing stub with the fields extracted from the
// article page into the canonical record. Page-level fields win over the
// stub's; the stub fills the gaps.
func BuildArticle(sourceURL string, stub models.Stub, fields models.ArticleFields, fetchedAt time.Time) models.Article {
	title := fields.Title
	if title == "" {
		title = stub.Title
	}
	published := fields.PublishedAt
	if published == nil {
		published = stub.PublishedAt
	}

	images := fields.Images
	if images == nil {
		images = []string{}
	}
	videos := fields.Videos
	if videos == nil {
		videos = []string{}
	}

	return models.Article{
		SourceURL:   sourceURL,
		ArticleURL:  stub.URL,
		Title:       title,
		BodyText:    fields.BodyText,
		PublishedAt: published,
		Images:      images,
		Videos:      videos,
		FetchedAt:   fetchedAt.UTC(),
		ContentHash: ContentHash(title, fields.BodyText),
	}
}
