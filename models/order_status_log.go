package models

import "time"

type OrderStatusLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	OldStatus string    `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus string    `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedAt time.Time `gorm:"not null;index" json:"changed_at"`
	UserName  *string   `gorm:"-:migration;->" json:"user_name,omitempty"`
}
