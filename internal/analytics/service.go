package analytics

import (
	"context"
	"fmt"

	"github.com/loomline/storefront-backend/internal/analytics/query"
	"github.com/loomline/storefront-backend/internal/analytics/types"
	"github.com/loomline/storefront-backend/pkg/bigquery"
)

// Service provides sales reports based on order lifecycle facts.
type Service interface {
	// SalesReport returns storefront KPIs for the provided window.
	SalesReport(ctx context.Context, req types.SalesReportRequest) (*types.SalesReport, error)
}

type service struct {
	sales query.SalesService
}

// NewService builds an analytics service backed by BigQuery.
func NewService(client *bigquery.Client, project, dataset, table string) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}

	sales, err := query.NewSalesService(client, project, dataset, table)
	if err != nil {
		return nil, err
	}

	return &service{sales: sales}, nil
}

func (s *service) SalesReport(ctx context.Context, req types.SalesReportRequest) (*types.SalesReport, error) {
	return s.sales.Report(ctx, req)
}
