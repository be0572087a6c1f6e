package aggregate

import (
	"sort"

	"github.com/corpradar/backend/internal/models"
)

// Trend averages each metric over the rows of each year. Every row carrying
// the metric weighs the same; rows from different report codes are pooled.
// Years without rows, and metrics absent from every row of a year, produce no
// point.
func Trend(rows []models.FinancialRow) []models.TrendPoint {
	byYear := make(map[int][]models.FinancialRow)
	for _, r := range rows {
		byYear[r.Year] = append(byYear[r.Year], r)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	points := make([]models.TrendPoint, 0, len(years)*len(models.Metrics))
	for _, y := range years {
		for _, m := range models.Metrics {
			var (
				sum float64
				n   int
			)
			for _, r := range byYear[y] {
				if v, ok := r.Value(m); ok {
					sum += v
					n++
				}
			}
			if n == 0 {
				continue
			}
			points = append(points, models.TrendPoint{
				Year:    y,
				Metric:  m,
				Average: sum / float64(n),
				Samples: n,
			})
		}
	}
	return points
}
