package grpc

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

// Money travels as decimal strings so no precision is lost in float64

func str(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		if !finite(k.NumberValue) {
			return ""
		}
		return decimal.NewFromFloat(k.NumberValue).String()
	default:
		return ""
	}
}

func has(req *structpb.Struct, key string) bool {
	v, ok := req.GetFields()[key]
	if !ok {
		return false
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return false
	case *structpb.Value_NumberValue:
		return finite(k.NumberValue)
	default:
		return true
	}
}

// finite rejects NaN and infinities, which JSON clients can still send
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func num(req *structpb.Struct, key string) decimal.Decimal {
	return domain.ParseNumeric(str(req, key))
}

func required(req *structpb.Struct, keys ...string) error {
	for _, key := range keys {
		if !has(req, key) || str(req, key) == "" {
			return status.Errorf(codes.InvalidArgument, "%s is required", key)
		}
	}
	return nil
}

func date(req *structpb.Struct, key string) (time.Time, error) {
	d, ok := domain.ParseDate(str(req, key))
	if !ok {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s %q", key, str(req, key))
	}
	return d, nil
}

func list(req *structpb.Struct, key string) []string {
	var out []string
	for _, v := range req.GetFields()[key].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func optionalDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return domain.FormatDate(t)
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func assetToMap(a *domain.Asset) map[string]any {
	kpi := domain.Evaluate(a)
	history := make([]any, 0, len(a.History))
	for _, e := range a.History {
		history = append(history, map[string]any{
			"date":     domain.FormatDate(e.Date),
			"value":    nullDecimal(e.Value),
			"price":    nullDecimal(e.Price),
			"quantity": nullDecimal(e.Quantity),
		})
	}

	m := map[string]any{
		"id":                 a.ID,
		"name":               a.Name,
		"type":               string(a.Type()),
		"account":            a.AccountName(),
		"current_value":      a.CurrentValue.String(),
		"acquisition_date":   optionalDate(a.AcquisitionDate),
		"acquisition_price":  a.AcquisitionPrice.String(),
		"quantity":           a.Quantity.String(),
		"disposal_date":      optionalDate(a.DisposalDate),
		"disposal_price":     a.DisposalPrice.String(),
		"balance_adjustment": a.IsBalanceAdjustment(),
		"kpi": map[string]any{
			"value":         kpi.Value.String(),
			"invested_cost": kpi.InvestedCost.String(),
			"liability":     kpi.Liability.String(),
			"net":           kpi.Net.String(),
			"profit_loss":   kpi.ProfitLoss.String(),
			"roi":           kpi.ROI.StringFixed(2),
		},
		"history": history,
	}
	if s := a.Stock(); s != nil {
		m["ticker"] = s.Ticker
		m["currency"] = s.Currency
	}
	return m
}

func summaryToMap(s domain.Summary) map[string]any {
	return map[string]any{
		"total_asset":     s.TotalAsset.String(),
		"total_liability": s.TotalLiability.String(),
		"net_worth":       s.NetWorth.String(),
		"invested_cost":   s.InvestedCost.String(),
		"profit_loss":     s.ProfitLoss.String(),
		"roi":             s.ROI.StringFixed(2),
	}
}

func pointsToList(points []timeseries.Point) []any {
	out := make([]any, 0, len(points))
	for _, p := range points {
		out = append(out, map[string]any{
			"date":  p.Date,
			"key":   p.Key,
			"value": p.Value.String(),
		})
	}
	return out
}

func rowsToList(rows []timeseries.Row) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"date":  r.Date,
			"value": r.Value.String(),
		})
	}
	return out
}

func allocationToMap(alloc map[domain.AssetType]decimal.Decimal) map[string]any {
	out := make(map[string]any, len(alloc))
	for t, v := range alloc {
		out[string(t)] = v.String()
	}
	return out
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
