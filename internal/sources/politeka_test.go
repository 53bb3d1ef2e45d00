package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const politekaListingHTML = `
<html><body>
<div class="col-lg-8">
  <div class="b_post">
    <div class="b_post--media"><a href="https://politeka.net/news/ukraine/1234-zagolovok"></a></div>
    <div class="b_post--title">Заголовок посту</div>
    <div class="b_post--date">18.08.2025 13:29</div>
  </div>
  <div class="b_post">
    <a class="b_post--image" href="/news/ukraine/1235-inshyj" title="Інший пост"></a>
    <div class="b_post--date">без дати</div>
  </div>
</div>
</body></html>`

const politekaArticleHTML = `
<html><body>
<h1>Заголовок посту</h1>
<div class="post_content"><p>Основний текст посту.</p></div>
</body></html>`

func TestPolitekaExtractListing(t *testing.T) {
	adapter := NewPoliteka()
	page, err := adapter.ExtractListing(politekaListingHTML, "https://politeka.net/uk/newsfeed")
	require.NoError(t, err)

	require.Len(t, page.Stubs, 2)

	first := page.Stubs[0]
	assert.Equal(t, "https://politeka.net/news/ukraine/1234-zagolovok", first.URL)
	assert.Equal(t, "Заголовок посту", first.Title)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, time.Date(2025, 8, 18, 13, 29, 0, 0, time.UTC), *first.PublishedAt)

	// Fallback image link, title attribute, unparsable date.
	second := page.Stubs[1]
	assert.Equal(t, "https://politeka.net/news/ukraine/1235-inshyj", second.URL)
	assert.Equal(t, "Інший пост", second.Title)
	assert.Nil(t, second.PublishedAt)
}

func TestPolitekaExtractArticle(t *testing.T) {
	adapter := NewPoliteka()
	fields, err := adapter.ExtractArticle(politekaArticleHTML, "https://politeka.net/news/ukraine/1234-zagolovok")
	require.NoError(t, err)

	assert.Equal(t, "Заголовок посту", fields.Title)
	assert.Equal(t, "Основний текст посту.", fields.BodyText)
}

func TestPolitekaNextPage(t *testing.T) {
	adapter := NewPoliteka()

	tests := []struct {
		pageURL string
		want    string
	}{
		{"https://politeka.net/uk/newsfeed", "https://politeka.net/uk/newsfeed?page=2"},
		{"https://politeka.net/uk/newsfeed?page=2", "https://politeka.net/uk/newsfeed?page=3"},
		{"https://politeka.net/uk/newsfeed?tag=x&page=9", "https://politeka.net/uk/newsfeed?tag=x&page=10"},
		{"https://politeka.net/uk/newsfeed?tag=x", "https://politeka.net/uk/newsfeed?tag=x&page=2"},
	}

	for _, tt := range tests {
		page, err := adapter.ExtractListing(politekaListingHTML, tt.pageURL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, page.NextURL, "from %s", tt.pageURL)
	}
}
