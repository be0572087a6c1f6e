package processing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpradar/backend/internal/models"
	"github.com/corpradar/backend/internal/processing"
)

func TestParsePubDate(t *testing.T) {
	ts, ok := processing.ParsePubDate("Tue, 18 Nov 2025 10:30:00 +0900")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 11, 18, 1, 30, 0, 0, time.UTC), ts.UTC())

	ts, ok = processing.ParsePubDate("2024-02-03T04:05:06Z")
	require.True(t, ok)
	require.Equal(t, 2024, ts.Year())
	require.Equal(t, time.February, ts.Month())

	legacy, ok := processing.ParsePubDate("2024-02-03 04:05:06")
	require.True(t, ok)
	require.Equal(t, 4, legacy.Hour())

	_, ok = processing.ParsePubDate("yesterday")
	require.False(t, ok)
	_, ok = processing.ParsePubDate("")
	require.False(t, ok)
}

func TestNormalizePrefersOriginalLink(t *testing.T) {
	item := models.RawNewsItem{
		Title:        "[단독] <b>카카오</b> 신사업",
		Link:         "https://n.news.naver.com/mnews/article/001/0001",
		OriginalLink: "https://www.yna.co.kr/view/AKR1?utm_source=naver",
		Description:  "카카오가 &quot;신사업&quot;을 발표했다",
		PubDate:      "Tue, 18 Nov 2025 10:30:00 +0900",
	}

	got, diags := processing.Normalize(item)
	require.Empty(t, diags)
	require.Equal(t, item, got.RawNewsItem)
	require.Equal(t, "카카오 신사업", got.TitleNorm)
	require.Equal(t, `카카오가 "신사업"을 발표했다`, got.DescriptionClean)
	require.Equal(t, "https://www.yna.co.kr/view/AKR1", got.CanonicalURL)
	require.NotNil(t, got.PublishedAt)
}

func TestNormalizeFallsBackToLink(t *testing.T) {
	got, diags := processing.Normalize(models.RawNewsItem{
		Title:        "title",
		Link:         "https://news.example.com/a/",
		OriginalLink: "::bad::",
		PubDate:      "Tue, 18 Nov 2025 10:30:00 +0900",
	})
	require.Empty(t, diags)
	require.Equal(t, "https://news.example.com/a", got.CanonicalURL)
}

func TestNormalizeReportsUnparsableFields(t *testing.T) {
	got, diags := processing.Normalize(models.RawNewsItem{
		Title:   "Title",
		Link:    "not a url",
		PubDate: "someday",
	})

	require.False(t, got.HasCanonicalURL())
	require.Nil(t, got.PublishedAt)
	require.Len(t, diags, 2)
	for _, d := range diags {
		require.Equal(t, models.UnparsableInput, d.Kind)
		require.Equal(t, "not a url", d.Subject)
	}
}
