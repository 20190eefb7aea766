package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the minimal catalog entry the cart engine resolves prices from.
type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_tenant_sku"`
	SKU      string    `gorm:"not null;uniqueIndex:idx_products_tenant_sku"`
	Name     string    `gorm:"index;not null"`

	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// DefaultTaxRate is applied when the caller does not override the line rate.
	DefaultTaxRate int64 `gorm:"not null;default:27"`

	// StockQty supports fractional units (e.g. goods sold by weight).
	StockQty decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	Active   bool            `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stock movement types.
const (
	StockSale        = "sale"
	StockVoidRestore = "void_restore"
	StockAdjustment  = "adjustment"
)

// StockMovement records every stock change. Movements are append-only;
// corrections create inverse entries.
type StockMovement struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	WarehouseID *uuid.UUID `gorm:"type:uuid"`
	Type        string     `gorm:"type:varchar(20);not null"`
	// Quantity is positive for inbound, negative for outbound.
	Quantity    decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	StockBefore decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(10,3);not null"`
	Reason      string
	// ReferenceID links to the originating transaction, if any.
	ReferenceID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}
