package processing

import (
	"strconv"
	"strings"
	"time"

	"github.com/corpradar/backend/internal/models"
)

var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParsePubDate parses the date formats emitted by the supported news sources.
func ParsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, f := range pubDateFormats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}

// Normalize derives the comparison keys and display body for one raw item.
// Unparsable dates and links are reported, never fatal.
func Normalize(item models.RawNewsItem) (models.NormalizedNewsItem, []models.Diagnostic) {
	out := models.NormalizedNewsItem{
		RawNewsItem:      item,
		TitleNorm:        NormalizeTitle(item.Title),
		DescriptionClean: StripHTML(item.Description),
	}

	var diags []models.Diagnostic
	subject := itemSubject(item)

	for _, link := range []string{item.OriginalLink, item.Link} {
		if canonical, ok := CanonicalURL(link); ok {
			out.CanonicalURL = canonical
			break
		}
	}
	if out.CanonicalURL == "" && (strings.TrimSpace(item.OriginalLink) != "" || strings.TrimSpace(item.Link) != "") {
		diags = append(diags, models.Diagnostic{
			Kind:    models.UnparsableInput,
			Subject: subject,
			Detail:  "link could not be canonicalized, falling back to title key",
		})
	}

	if ts, ok := ParsePubDate(item.PubDate); ok {
		out.PublishedAt = &ts
	} else {
		diags = append(diags, models.Diagnostic{
			Kind:    models.UnparsableInput,
			Subject: subject,
			Detail:  "unparsable pubDate " + strconv.Quote(item.PubDate),
		})
	}

	return out, diags
}

func itemSubject(item models.RawNewsItem) string {
	if s := strings.TrimSpace(item.Link); s != "" {
		return s
	}
	if s := strings.TrimSpace(item.OriginalLink); s != "" {
		return s
	}
	return strings.TrimSpace(item.Title)
}
