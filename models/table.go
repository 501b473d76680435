package models

import "time"

type Table struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StoreID    uint      `gorm:"not null;index" json:"store_id"`
	Store      *Store    `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	QRCode     string    `gorm:"column:qr_code;type:varchar(64);uniqueIndex;not null" json:"qr_code"`
	Capacity   int       `gorm:"not null;default:4" json:"capacity"`
	IsOccupied bool      `gorm:"not null;default:false" json:"is_occupied"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableWithStore is the QR lookup view of a table.
type TableWithStore struct {
	Table
	StoreName   string `json:"store_name"`
	StoreActive bool   `json:"store_active"`
}

type TableAssignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StoreID     uint      `gorm:"not null;uniqueIndex:idx_assignment_table" json:"store_id"`
	TableID     uint      `gorm:"not null;uniqueIndex:idx_assignment_table" json:"table_id"`
	Table       *Table    `gorm:"foreignKey:TableID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	StaffUserID uint      `gorm:"not null;index" json:"staff_user_id"`
	Staff       *User     `gorm:"foreignKey:StaffUserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	AssignedAt  time.Time `gorm:"not null" json:"assigned_at"`
	TableName   string    `gorm:"-:migration;->" json:"table_name,omitempty"`
	StaffName   string    `gorm:"-:migration;->" json:"staff_name,omitempty"`
}
