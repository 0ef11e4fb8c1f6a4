package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/enums"
)

// Order is the checkout result. Totals and item prices are frozen at
// creation; later product edits never touch an existing order.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number     string            `gorm:"column:number;not null;uniqueIndex"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalCents int64             `gorm:"column:total_cents;not null"`
	Currency   enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	Email      string            `gorm:"column:email;not null"`
	Name       string            `gorm:"column:name;not null"`
	Phone      *string           `gorm:"column:phone"`
	Address1   string            `gorm:"column:address1;not null"`
	Address2   *string           `gorm:"column:address2"`
	City       string            `gorm:"column:city;not null"`
	PostalCode string            `gorm:"column:postal_code;not null"`
	Country    string            `gorm:"column:country;not null"`
	PaymentRef *string           `gorm:"column:payment_ref"`
	PaidAt     *time.Time        `gorm:"column:paid_at"`
	CanceledAt *time.Time        `gorm:"column:canceled_at"`
	Items      []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
