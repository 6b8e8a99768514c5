package grpc

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/usecase/correction"
	"github.com/simaogato/assetflow-backend/internal/usecase/ingestion"
	"github.com/simaogato/assetflow-backend/internal/usecase/portfolio"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
	"github.com/simaogato/assetflow-backend/internal/usecase/retirement"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

// Server implements the AssetFlowService gRPC server
type Server struct {
	PortfolioService  *portfolio.PortfolioService
	CorrectionService *correction.Service
	ReconcileService  *reconcile.Service
	IngestionService  *ingestion.Service
	RetirementService *retirement.Service
}

// NewServer creates a new gRPC server instance
func NewServer(
	portfolioService *portfolio.PortfolioService,
	correctionService *correction.Service,
	reconcileService *reconcile.Service,
	ingestionService *ingestion.Service,
	retirementService *retirement.Service,
) *Server {
	return &Server{
		PortfolioService:  portfolioService,
		CorrectionService: correctionService,
		ReconcileService:  reconcileService,
		IngestionService:  ingestionService,
		RetirementService: retirementService,
	}
}

var _ AssetFlowServiceServer = (*Server)(nil)

// ListAssets handles the ListAssets RPC
func (s *Server) ListAssets(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	state, err := s.PortfolioService.Load(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	assets := make([]any, 0, len(state.Assets))
	for _, a := range state.Assets {
		assets = append(assets, assetToMap(a))
	}
	issues := make([]any, 0, len(state.Issues))
	for _, issue := range state.Issues {
		issues = append(issues, issue.String())
	}

	return toStruct(map[string]any{
		"assets": assets,
		"issues": issues,
	})
}

// GetDashboard handles the GetDashboard RPC
func (s *Server) GetDashboard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dash, err := s.PortfolioService.GetDashboard(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	accounts := make([]any, 0, len(dash.Accounts))
	for _, acc := range dash.Accounts {
		accounts = append(accounts, map[string]any{
			"account":    acc.Account,
			"holdings":   acc.Holdings,
			"adjustment": acc.Adjustment.String(),
			"summary":    summaryToMap(acc.Summary),
		})
	}

	return toStruct(map[string]any{
		"summary":    summaryToMap(dash.Summary),
		"allocation": allocationToMap(dash.Allocation),
		"accounts":   accounts,
		"series":     pointsToList(dash.Series),
	})
}

// GetSeries handles the GetSeries RPC. With asset_id it returns that asset's
// dense series, otherwise the series of filter aggregated along dimension.
func (s *Server) GetSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if id := str(req, "asset_id"); id != "" {
		detail, err := s.PortfolioService.GetAssetDetail(ctx, id)
		if err != nil {
			return nil, mapError(err)
		}
		return toStruct(map[string]any{
			"asset": assetToMap(detail.Asset),
			"rows":  rowsToList(detail.Series),
		})
	}

	var filter domain.AssetType
	if raw := str(req, "filter"); raw != "" {
		t, err := domain.ParseAssetType(raw)
		if err != nil {
			return nil, mapError(err)
		}
		filter = t
	}
	dim, err := timeseries.ParseDimension(str(req, "dimension"))
	if err != nil {
		return nil, mapError(err)
	}

	points, err := s.PortfolioService.GetSeries(ctx, filter, dim)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"points": pointsToList(points),
	})
}

// AddHistoryEntry handles the AddHistoryEntry RPC
func (s *Server) AddHistoryEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "asset_id", "date"); err != nil {
		return nil, err
	}
	d, err := date(req, "date")
	if err != nil {
		return nil, err
	}

	// price × quantity is valued server side at the asset's exchange rate
	var entry domain.HistoryEntry
	switch {
	case has(req, "price") && has(req, "quantity"):
		entry = domain.NewPriceEntry(d, num(req, "price"), num(req, "quantity"), decimal.NewFromInt(1))
	case has(req, "value"):
		entry = domain.NewValueEntry(d, num(req, "value"))
	default:
		return nil, status.Error(codes.InvalidArgument, "value or price and quantity are required")
	}

	asset, err := s.PortfolioService.AddHistoryEntry(ctx, str(req, "asset_id"), entry)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"asset": assetToMap(asset),
	})
}

// CorrectQuantity handles the CorrectQuantity RPC
func (s *Server) CorrectQuantity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "asset_id", "date", "price", "quantity"); err != nil {
		return nil, err
	}
	d, err := date(req, "date")
	if err != nil {
		return nil, err
	}

	result, err := s.CorrectionService.CorrectQuantity(ctx, str(req, "asset_id"), d, num(req, "price"), num(req, "quantity"))
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"asset_id":      result.AssetID,
		"inserted":      result.Inserted,
		"changed":       result.Changed,
		"current_value": result.CurrentValue.String(),
		"quantity":      result.Quantity.String(),
	})
}

// ReconcileAccount handles the ReconcileAccount RPC
func (s *Server) ReconcileAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := required(req, "account", "total"); err != nil {
		return nil, err
	}

	result, err := s.ReconcileService.Reconcile(ctx, str(req, "account"), num(req, "total"))
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"account":       result.Account,
		"asserted":      result.Asserted.String(),
		"holdings":      result.Holdings.String(),
		"adjustment":    result.Adjustment.String(),
		"adjustment_id": result.AdjustmentID,
		"created":       result.Created,
	})
}

// UpdatePrices handles the UpdatePrices RPC. An empty ticker list refreshes every tracked ticker.
func (s *Server) UpdatePrices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	report, err := s.IngestionService.UpdateAll(ctx, list(req, "tickers"))
	if err != nil {
		return nil, mapError(err)
	}

	failures := make([]any, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, map[string]any{
			"ticker": f.Ticker,
			"error":  f.Err.Error(),
		})
	}
	rewound := make([]any, 0, len(report.Rewound))
	for _, id := range report.Rewound {
		rewound = append(rewound, id)
	}

	return toStruct(map[string]any{
		"tickers":  report.Tickers,
		"updated":  report.Updated,
		"rewound":  rewound,
		"failures": failures,
	})
}

// GetRetirementPlan handles the GetRetirementPlan RPC
func (s *Server) GetRetirementPlan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	plan, err := s.RetirementService.Plan(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	years := make([]any, 0, len(plan.Years))
	for _, y := range plan.Years {
		payouts := make(map[string]any, len(y.Payouts))
		for _, name := range sortedKeys(y.Payouts) {
			payouts[name] = y.Payouts[name].String()
		}
		years = append(years, map[string]any{
			"year":    y.Year,
			"age":     y.Age,
			"payouts": payouts,
			"total":   y.Total.String(),
		})
	}

	return toStruct(map[string]any{
		"retirement_age":        plan.RetirementAge,
		"monthly_at_retirement": plan.MonthlyAtRetirement.String(),
		"years":                 years,
	})
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrIntegrityViolation):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	default:
		return status.Errorf(codes.Internal, "%s", err.Error())
	}
}
