package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types carried by order events.
const (
	EventNewOrder           = "NEW_ORDER"
	EventOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventOrderReady         = "ORDER_READY"
	EventOrderConfirmed     = "ORDER_CONFIRMED"
)

// OrderEvent is a row of the order event outbox. Rows are written in the same
// transaction as the order mutation that caused them and marked dispatched once
// every sink accepted them.
type OrderEvent struct {
	ID           uint           `gorm:"primaryKey" json:"-"`
	EventID      string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"event_id"`
	OrderID      uint           `gorm:"not null;index" json:"order_id"`
	Order        *Order         `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	StoreID      uint           `gorm:"not null" json:"store_id"`
	Type         string         `gorm:"type:varchar(32);not null" json:"type"`
	Payload      datatypes.JSON `gorm:"not null" json:"payload"`
	Attempts     int            `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	DispatchedAt *time.Time     `gorm:"index" json:"dispatched_at,omitempty"`
}

// Notification targets set per room at fan-out time.
const (
	TargetStore      = "store"
	TargetKitchen    = "kitchen"
	TargetTableStaff = "table_staff"
	TargetCustomer   = "customer"
	TargetStaff      = "staff"
	TargetManager    = "manager"
)

// OrderEventPayload is the JSON stored in OrderEvent.Payload and pushed to
// clients as the data of a "notification" frame. Target is filled per room.
type OrderEventPayload struct {
	EventID          string    `json:"eventId"`
	Type             string    `json:"type"`
	OrderID          uint      `json:"orderId"`
	OrderNumber      string    `json:"orderNumber"`
	StoreID          uint      `json:"storeId"`
	TableID          *uint     `json:"tableId,omitempty"`
	TableName        *string   `json:"tableName,omitempty"`
	TotalAmount      int64     `json:"totalAmount,omitempty"`
	EstimatedMinutes *int      `json:"estimatedMinutes,omitempty"`
	QueueNumber      *int      `json:"queueNumber,omitempty"`
	OldStatus        string    `json:"oldStatus,omitempty"`
	NewStatus        string    `json:"newStatus,omitempty"`
	StaffUserID      *uint     `json:"staffUserId,omitempty"`
	StaffName        string    `json:"staffName,omitempty"`
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
	Target           string    `json:"target,omitempty"`
}
