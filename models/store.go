package models

import "time"

type Store struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerID      uint      `gorm:"not null;index" json:"owner_id"`
	Owner        *User     `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string   `gorm:"type:text" json:"description"`
	Address      *string   `gorm:"type:varchar(255)" json:"address"`
	Phone        *string   `gorm:"type:varchar(50)" json:"phone"`
	BusinessType string    `gorm:"type:varchar(50);not null;default:'restaurant'" json:"business_type"`
	OpenTime     string    `gorm:"type:varchar(5);not null;default:'09:00'" json:"open_time"`
	CloseTime    string    `gorm:"type:varchar(5);not null;default:'22:00'" json:"close_time"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	OwnerName    string    `gorm:"-:migration;->" json:"owner_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
