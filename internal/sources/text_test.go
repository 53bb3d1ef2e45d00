package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Hello world", CleanText("  Hello\n\t world  "))
	assert.Equal(t, "Bold text", CleanText("<b>Bold</b> text"))
	assert.Equal(t, "A & B", CleanText("A &amp; B"))
	assert.Equal(t, "", CleanText(""))
}

func TestNormalizeURL(t *testing.T) {
	base := "https://www.pravda.com.ua"

	assert.Equal(t, "https://other.com/x", NormalizeURL("https://other.com/x", base))
	assert.Equal(t, "https://cdn.example.com/a.jpg", NormalizeURL("//cdn.example.com/a.jpg", base))
	assert.Equal(t, "https://www.pravda.com.ua/news/2025/08/18/x/", NormalizeURL("/news/2025/08/18/x/", base))

	// Root-relative links resolve against the host even when the base
	// carries a path.
	assert.Equal(t, "https://www.pravda.com.ua/news/x/",
		NormalizeURL("/news/x/", "https://www.pravda.com.ua/news/date_18082025/"))
}

func TestParseDateText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"iso", "2025-08-18T13:29:45+03:00", time.Date(2025, 8, 18, 13, 29, 45, 0, time.UTC)},
		{"ukrainian genitive", "18 серпня 2025, 13:29", time.Date(2025, 8, 18, 13, 29, 0, 0, time.UTC)},
		{"ukrainian uppercase", "5 Грудня 2024 09:05", time.Date(2024, 12, 5, 9, 5, 0, 0, time.UTC)},
		{"dotted", "18.08.2025 13:29", time.Date(2025, 8, 18, 13, 29, 0, 0, time.UTC)},
		{"slashes", "18/08/2025 13:29", time.Date(2025, 8, 18, 13, 29, 0, 0, time.UTC)},
		{"embedded in prose", "Опубліковано 18 серпня 2025, 13:29 редакцією", time.Date(2025, 8, 18, 13, 29, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDateText(tt.text)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseDateTextNoMatch(t *testing.T) {
	assert.Nil(t, ParseDateText(""))
	assert.Nil(t, ParseDateText("just words"))
	assert.Nil(t, ParseDateText("18 notamonth 2025, 13:29"))
	// Out-of-range values are rejected, not clamped.
	assert.Nil(t, ParseDateText("45.13.2025 13:29"))
}

func TestCombineDateTime(t *testing.T) {
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)

	got := CombineDateTime(&day, "13:29")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 8, 18, 13, 29, 0, 0, time.UTC), *got)

	// Unparsable time falls back to midnight of the page date.
	got = CombineDateTime(&day, "soon")
	require.NotNil(t, got)
	assert.Equal(t, day, *got)

	// A nil page date still yields a timestamp so the stub is not dropped.
	got = CombineDateTime(nil, "13:29")
	require.NotNil(t, got)
}

func TestDatePageRoundTrip(t *testing.T) {
	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "date_18082025", FormatDatePage(day))

	parsed, ok := ParseDatePage("https://www.pravda.com.ua/news/date_18082025/")
	require.True(t, ok)
	assert.Equal(t, day, parsed)

	_, ok = ParseDatePage("https://www.pravda.com.ua/news/")
	assert.False(t, ok)

	_, ok = ParseDatePage("https://www.pravda.com.ua/news/date_45132025/")
	assert.False(t, ok)
}
