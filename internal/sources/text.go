package sources

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	isoDateRe    = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})T(\d{1,2}):(\d{1,2}):(\d{1,2})`)
	ukDateRe     = regexp.MustCompile(`(?i)(\d{1,2})\s+([а-яіїєґ]+)\s+(\d{4}),?\s*(\d{1,2}):(\d{2})`)
	dottedDateRe = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{2})`)
	slashDateRe  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})`)
	clockRe      = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	datePageRe   = regexp.MustCompile(`date_(\d{2})(\d{2})(\d{4})`)
)

// Ukrainian month names in both genitive and nominative forms.
var monthsUK = map[string]time.Month{
	"січня": 1, "січень": 1,
	"лютого": 2, "лютий": 2,
	"березня": 3, "березень": 3,
	"квітня": 4, "квітень": 4,
	"травня": 5, "травень": 5,
	"червня": 6, "червень": 6,
	"липня": 7, "липень": 7,
	"серпня": 8, "серпень": 8,
	"вересня": 9, "вересень": 9,
	"жовтня": 10, "жовтень": 10,
	"листопада": 11, "листопад": 11,
	"грудня": 12, "грудень": 12,
}

// CleanText strips markup remnants and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeURL resolves scheme-relative and root-relative links against the
// source's base URL.
func NormalizeURL(raw, baseURL string) string {
	switch {
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		if parts := strings.Split(baseURL, "/"); len(parts) > 3 {
			baseURL = strings.Join(parts[:3], "/")
		}
		return baseURL + raw
	default:
		return baseURL + "/" + raw
	}
}

// ParseDateText extracts a publication timestamp from free text. Supported
// shapes: ISO 8601, "18 серпня 2025, 13:29", "18.08.2025 13:29" and the
// slash variant. Returns nil when nothing matches.
func ParseDateText(text string) *time.Time {
	if text == "" {
		return nil
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return buildDate(m[1], m[2], m[3], m[4], m[5], m[6])
	}
	if m := ukDateRe.FindStringSubmatch(text); m != nil {
		month, ok := monthsUK[strings.ToLower(m[2])]
		if !ok {
			return nil
		}
		return buildDate(m[3], strconv.Itoa(int(month)), m[1], m[4], m[5], "0")
	}
	if m := dottedDateRe.FindStringSubmatch(text); m != nil {
		return buildDate(m[3], m[2], m[1], m[4], m[5], "0")
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		return buildDate(m[3], m[2], m[1], m[4], m[5], "0")
	}
	return nil
}

// CombineDateTime merges a page-level date with an "HH:MM" time string; a
// missing or unparsable time falls back to midnight of the page date.
func CombineDateTime(pageDate *time.Time, timeText string) *time.Time {
	if pageDate == nil {
		now := time.Now().UTC()
		return &now
	}
	if m := clockRe.FindStringSubmatch(timeText); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			t := time.Date(pageDate.Year(), pageDate.Month(), pageDate.Day(), hour, minute, 0, 0, time.UTC)
			return &t
		}
	}
	t := time.Date(pageDate.Year(), pageDate.Month(), pageDate.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

// FormatDatePage renders the date-archive path segment used by the pravda
// family of sites (DDMMYYYY).
func FormatDatePage(t time.Time) string {
	return "date_" + t.Format("02012006")
}

// ParseDatePage extracts the archive date from a /date_DDMMYYYY/ listing URL.
func ParseDatePage(url string) (time.Time, bool) {
	m := datePageRe.FindStringSubmatch(url)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

func buildDate(year, month, day, hour, minute, second string) *time.Time {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)
	s, _ := strconv.Atoi(second)
	if mo < 1 || mo > 12 || d < 1 || d > 31 || h > 23 || mi > 59 {
		return nil
	}
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC)
	return &t
}
