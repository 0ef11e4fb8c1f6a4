package types

import "time"

// SalesReportRequest carries the reporting window for sales queries.
type SalesReportRequest struct {
	Start time.Time
	End   time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue represents a top-N entry such as a product or SKU.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// SalesReport wraps the storefront KPIs for the admin dashboard.
type SalesReport struct {
	OrdersSeries    []TimeSeriesPoint `json:"orders"`
	RevenueSeries   []TimeSeriesPoint `json:"revenue"`
	TopProducts     []LabelValue      `json:"top_products"`
	AvgOrderCents   float64           `json:"avg_order_cents"`
	NewCustomers    int64             `json:"new_customers"`
	RepeatCustomers int64             `json:"repeat_customers"`
}
