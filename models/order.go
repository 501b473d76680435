package models

import (
	"fmt"
	"time"
)

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
)

// OrderStatuses lists every accepted status in lifecycle order.
var OrderStatuses = []string{
	OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled,
}

// TerminalStatuses are excluded when the next queue number is computed.
var TerminalStatuses = []string{OrderCompleted, OrderCancelled}

func IsOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// BusinessDateLayout is the format of Order.BusinessDate.
const BusinessDateLayout = "2006-01-02"

type Order struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	StoreID          uint        `gorm:"not null;index:idx_orders_store_date" json:"store_id"`
	Store            *Store      `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	TableID          *uint       `gorm:"index" json:"table_id"`
	Table            *Table      `gorm:"foreignKey:TableID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	OrderNumber      string      `gorm:"type:varchar(20);not null" json:"order_number"`
	CustomerName     *string     `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone    *string     `gorm:"type:varchar(50)" json:"customer_phone"`
	Status           string      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount      int64       `gorm:"not null;default:0" json:"total_amount"`
	PaymentMethod    *string     `gorm:"type:varchar(50)" json:"payment_method"`
	PaymentStatus    string      `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	Notes            *string     `gorm:"type:text" json:"notes"`
	QueueNumber      *int        `json:"queue_number"`
	EstimatedMinutes *int        `json:"estimated_minutes"`
	BusinessDate     string      `gorm:"type:varchar(10);not null;index:idx_orders_store_date" json:"business_date"`
	UpdatedBy        *uint       `json:"updated_by"`
	Version          int         `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	Items            []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	TableName        *string     `gorm:"-:migration;->" json:"table_name,omitempty"`
	StoreName        *string     `gorm:"-:migration;->" json:"store_name,omitempty"`
}

// DisplayNumber is the label used in customer facing messages.
func (o *Order) DisplayNumber() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return fmt.Sprintf("%d", o.ID)
}
