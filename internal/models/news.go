package models

import "time"

// RawNewsItem is one result of the upstream news search, exactly as received.
type RawNewsItem struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink,omitempty"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// NormalizedNewsItem carries the raw fields plus the keys used for deduplication.
type NormalizedNewsItem struct {
	RawNewsItem
	TitleNorm        string     `json:"titleNorm"`
	DescriptionClean string     `json:"descriptionClean"`
	CanonicalURL     string     `json:"canonicalUrl,omitempty"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
}

// HasCanonicalURL reports whether the link could be canonicalized.
func (n NormalizedNewsItem) HasCanonicalURL() bool {
	return n.CanonicalURL != ""
}
