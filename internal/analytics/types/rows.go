package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderFactRow mirrors the order_facts BigQuery schema. One row per order
// lifecycle event; revenue reports sum settled_cents over order_paid rows so
// a retried creation never double counts.
type OrderFactRow struct {
	EventID      string             `bigquery:"event_id"`
	EventType    string             `bigquery:"event_type"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	OrderID      *string            `bigquery:"order_id"`
	OrderNumber  *string            `bigquery:"order_number"`
	UserID       *string            `bigquery:"user_id"`
	Currency     *string            `bigquery:"currency"`
	ItemCount    *int64             `bigquery:"item_count"`
	UnitCount    *int64             `bigquery:"unit_count"`
	GrossCents   *int64             `bigquery:"gross_cents"`
	SettledCents *int64             `bigquery:"settled_cents"`
	PaymentRef   *string            `bigquery:"payment_ref"`
	Items        cbigquery.NullJSON `bigquery:"items"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}
