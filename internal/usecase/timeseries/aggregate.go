package timeseries

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/simaogato/assetflow-backend/internal/domain"
)

// Dimension selects how rows are grouped
type Dimension int

const (
	ByType Dimension = iota
	ByAccount
	ByName
	ByAsset
	Total
)

// ParseDimension reads a dimension name; "" selects ByType
func ParseDimension(raw string) (Dimension, error) {
	switch raw {
	case "", "type":
		return ByType, nil
	case "account":
		return ByAccount, nil
	case "name":
		return ByName, nil
	case "asset":
		return ByAsset, nil
	case "total":
		return Total, nil
	default:
		return 0, fmt.Errorf("%w: unknown dimension %q", domain.ErrInvalidInput, raw)
	}
}

// TotalKey labels the single group produced by Total
const TotalKey = "TOTAL"

// Point is the aggregated value of one group on one day
type Point struct {
	Date  string
	Key   string
	Value decimal.Decimal
}

func (d Dimension) key(r Row) string {
	switch d {
	case ByType:
		return string(r.Type)
	case ByAccount:
		return r.Account
	case ByName:
		return r.Name
	case ByAsset:
		return r.AssetID
	default:
		return TotalKey
	}
}

// Aggregate sums rows by (date, dimension). Points are ordered by date, then key.
func Aggregate(rows []Row, dim Dimension) []Point {
	type groupKey struct{ date, key string }

	sums := make(map[groupKey]decimal.Decimal)
	for _, r := range rows {
		k := groupKey{date: r.Date, key: dim.key(r)}
		sums[k] = sums[k].Add(r.Value)
	}

	points := make([]Point, 0, len(sums))
	for k, v := range sums {
		points = append(points, Point{Date: k.date, Key: k.key, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Key < points[j].Key
	})
	return points
}

// Keys returns the distinct group keys in order
func Keys(points []Point) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, p := range points {
		if _, ok := seen[p.Key]; ok {
			continue
		}
		seen[p.Key] = struct{}{}
		keys = append(keys, p.Key)
	}
	sort.Strings(keys)
	return keys
}

// Latest returns the value of every group on the last date present
func Latest(points []Point) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	if len(points) == 0 {
		return out
	}
	last := points[len(points)-1].Date
	for _, p := range points {
		if p.Date == last {
			out[p.Key] = p.Value
		}
	}
	return out
}
