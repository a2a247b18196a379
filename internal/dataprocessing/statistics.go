package dataprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	perrors "salespipeline/internal/errors"
	"salespipeline/pkg/contracts/domain"
)

// DescribeRevenue computes summary statistics over the non-null revenue values.
// Std is the sample standard deviation and is zero for a single value.
func DescribeRevenue(table *domain.SalesTable) (domain.RevenueStats, error) {
	values := table.RevenueValues()
	if len(values) == 0 {
		return domain.RevenueStats{}, perrors.NewTransformError("revenue statistics",
			"no non-null revenue values", nil)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	stats := domain.RevenueStats{
		Count:  len(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Sum:    floats.Sum(sorted),
		Q25:    quantile(sorted, 0.25),
		Median: quantile(sorted, 0.50),
		Q75:    quantile(sorted, 0.75),
	}
	if len(sorted) > 1 {
		stats.Mean, stats.Std = stat.MeanStdDev(sorted, nil)
	} else {
		stats.Mean = sorted[0]
	}
	return stats, nil
}

// quantile interpolates linearly between the closest ranks of sorted data,
// at position h = (n-1)p.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// ProfileTable reports the kind and null count of every output column
func ProfileTable(table *domain.SalesTable) []domain.ColumnInfo {
	profile := make([]domain.ColumnInfo, 0, len(table.Columns))
	extra := make(map[string]int, len(table.ExtraColumns))
	for i, name := range table.ExtraColumns {
		extra[name] = i
	}

	for _, name := range table.Columns {
		info := domain.ColumnInfo{Name: name}
		switch name {
		case domain.ColumnDate:
			info.Kind = domain.ColumnKindDatetime
		case domain.ColumnRevenue:
			info.Kind = domain.ColumnKindFloat
			for _, r := range table.Records {
				if !r.Revenue.Valid {
					info.NullCount++
				}
			}
		case domain.ColumnMonthNum, domain.ColumnQuarter, domain.ColumnYear:
			info.Kind = domain.ColumnKindInt
		case domain.ColumnMonth:
			info.Kind = domain.ColumnKindObject
		case domain.ColumnProduct, domain.ColumnCategory, domain.ColumnRegion:
			info.Kind = domain.ColumnKindObject
			for _, r := range table.Records {
				if textValue(r, name) == "" {
					info.NullCount++
				}
			}
		default:
			info.Kind = domain.ColumnKindObject
			if j, ok := extra[name]; ok {
				if j < len(table.ExtraKinds) {
					info.Kind = table.ExtraKinds[j]
				}
				for _, r := range table.Records {
					if j >= len(r.Extra) || r.Extra[j] == nil {
						info.NullCount++
					}
				}
			}
		}
		profile = append(profile, info)
	}
	return profile
}

func textValue(r domain.SalesRecord, column string) string {
	switch column {
	case domain.ColumnProduct:
		return r.Product
	case domain.ColumnCategory:
		return r.Category
	case domain.ColumnRegion:
		return r.Region
	}
	return ""
}
