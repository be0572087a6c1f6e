package radar

import (
	"context"

	"github.com/corpradar/backend/internal/dedupe"
	"github.com/corpradar/backend/internal/elasticsearch"
	"github.com/corpradar/backend/internal/models"
	"github.com/corpradar/backend/internal/naver"
)

const (
	SourceNaver  = "naver"
	SourceIndex  = "index"
	SourceInline = "inline"
)

// SourceQuery is what a news source is asked for.
type SourceQuery struct {
	Text    string
	Display int
	Order   dedupe.SortOrder
}

// Source returns raw news items for a query.
type Source interface {
	Search(ctx context.Context, q SourceQuery) ([]models.RawNewsItem, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q SourceQuery) ([]models.RawNewsItem, error)

func (f SourceFunc) Search(ctx context.Context, q SourceQuery) ([]models.RawNewsItem, error) {
	return f(ctx, q)
}

// NaverSource searches the Naver news API.
func NaverSource(c *naver.Client) Source {
	return SourceFunc(func(ctx context.Context, q SourceQuery) ([]models.RawNewsItem, error) {
		sort := naver.SortSim
		if q.Order == dedupe.SortDate {
			sort = naver.SortDate
		}
		return c.Search(ctx, naver.SearchParams{Query: q.Text, Display: q.Display, Sort: sort})
	})
}

// IndexSource searches an Elasticsearch news index.
func IndexSource(c *elasticsearch.Client) Source {
	return SourceFunc(func(ctx context.Context, q SourceQuery) ([]models.RawNewsItem, error) {
		res, err := c.SearchNews(ctx, elasticsearch.SearchParams{
			Query:  q.Text,
			Size:   q.Display,
			ByDate: q.Order == dedupe.SortDate,
		})
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}
