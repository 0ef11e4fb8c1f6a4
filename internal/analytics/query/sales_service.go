package query

import (
	"context"
	"fmt"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/loomline/storefront-backend/internal/analytics/types"
	"github.com/loomline/storefront-backend/pkg/bigquery"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
)

const (
	ordersSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(*) AS value
FROM %s
WHERE event_type = 'order_created'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	revenueSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  SUM(COALESCE(settled_cents, 0)) AS value
FROM %s
WHERE event_type = 'order_paid'
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	topProductsSQL = `
SELECT label, SUM(value) AS value FROM (
  SELECT
    JSON_VALUE(item, '$.name') AS label,
    SAFE_CAST(JSON_VALUE(item, '$.unit_price_cents') AS INT64)
      * SAFE_CAST(JSON_VALUE(item, '$.quantity') AS INT64) AS value
  FROM %s
  WHERE items IS NOT NULL
    AND event_type = 'order_created'
    AND occurred_at BETWEEN @start AND @end,
  UNNEST(JSON_EXTRACT_ARRAY(items)) AS item
)
WHERE label IS NOT NULL
GROUP BY label
ORDER BY value DESC
LIMIT 5
`

	avgOrderSQL = `
SELECT SAFE_DIVIDE(SUM(COALESCE(settled_cents, 0)), NULLIF(COUNT(DISTINCT order_id), 0)) AS value
FROM %s
WHERE event_type = 'order_paid'
  AND occurred_at BETWEEN @start AND @end
`

	newRepeatSQL = `
WITH prior_buyers AS (
  SELECT DISTINCT user_id
  FROM %s
  WHERE event_type = 'order_created'
    AND occurred_at < @start
    AND user_id IS NOT NULL
),
current_buyers AS (
  SELECT DISTINCT user_id,
    CASE
      WHEN user_id IN (SELECT user_id FROM prior_buyers) THEN 'repeat'
      ELSE 'new'
    END AS category
  FROM %s
  WHERE event_type = 'order_created'
    AND occurred_at BETWEEN @start AND @end
    AND user_id IS NOT NULL
)
SELECT
  COUNTIF(category = 'new') AS new_customers,
  COUNTIF(category = 'repeat') AS repeat_customers
FROM current_buyers
`
)

// SalesService provides dashboard data from the BigQuery order_facts table.
type SalesService interface {
	Report(ctx context.Context, req types.SalesReportRequest) (*types.SalesReport, error)
}

type salesService struct {
	client   *bigquery.Client
	tableRef string
}

// NewSalesService builds a service backed by BigQuery.
func NewSalesService(client *bigquery.Client, project, dataset, table string) (SalesService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("project, dataset, and table are required")
	}
	return &salesService{
		client:   client,
		tableRef: fmt.Sprintf("`%s.%s.%s`", project, dataset, table),
	}, nil
}

func (s *salesService) Report(ctx context.Context, req types.SalesReportRequest) (*types.SalesReport, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	params := s.baseParams(req)

	orders, err := s.querySeries(ctx, fmt.Sprintf(ordersSeriesSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	revenue, err := s.querySeries(ctx, fmt.Sprintf(revenueSeriesSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.queryTopLabels(ctx, fmt.Sprintf(topProductsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	avgOrder, err := s.queryAvgOrder(ctx, fmt.Sprintf(avgOrderSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	newCustomers, repeatCustomers, err := s.queryNewRepeat(ctx, fmt.Sprintf(newRepeatSQL, s.tableRef, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	return &types.SalesReport{
		OrdersSeries:    orders,
		RevenueSeries:   revenue,
		TopProducts:     topProducts,
		AvgOrderCents:   avgOrder,
		NewCustomers:    newCustomers,
		RepeatCustomers: repeatCustomers,
	}, nil
}

func validateRequest(req types.SalesReportRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

func (s *salesService) baseParams(req types.SalesReportRequest) []cloudbigquery.QueryParameter {
	return []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}
}

func (s *salesService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	var points []types.TimeSeriesPoint
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

func (s *salesService) queryTopLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query top labels: %w", err)
	}

	var result []types.LabelValue
	for {
		var row struct {
			Label string `bigquery:"label"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading top label row: %w", err)
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}

func (s *salesService) queryAvgOrder(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (float64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, fmt.Errorf("query avg order: %w", err)
	}
	var row struct {
		Value cloudbigquery.NullFloat64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if err == iterator.Done {
			return 0, nil
		}
		return 0, fmt.Errorf("reading avg order row: %w", err)
	}
	if !row.Value.Valid {
		return 0, nil
	}
	return row.Value.Float64, nil
}

func (s *salesService) queryNewRepeat(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (int64, int64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, 0, fmt.Errorf("query new vs repeat: %w", err)
	}
	var row struct {
		NewCustomers    int64 `bigquery:"new_customers"`
		RepeatCustomers int64 `bigquery:"repeat_customers"`
	}
	if err := iter.Next(&row); err != nil {
		if err == iterator.Done {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("reading new vs repeat row: %w", err)
	}
	return row.NewCustomers, row.RepeatCustomers, nil
}
