package models

import "time"

// DefaultCookingMinutes is assumed for products without a cooking time.
const DefaultCookingMinutes = 5

type Product struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StoreID      uint      `gorm:"not null;index" json:"store_id"`
	Store        *Store    `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CategoryID   *uint     `gorm:"index" json:"category_id"`
	Category     *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string   `gorm:"type:text" json:"description"`
	Price        int64     `gorm:"not null;default:0" json:"price"`
	ImageURL     *string   `gorm:"column:image_url;type:varchar(500)" json:"image_url"`
	CookingTime  *int      `json:"cooking_time"`
	IsSoldOut    bool      `gorm:"not null;default:false" json:"is_sold_out"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	SortOrder    int       `gorm:"not null;default:0" json:"sort_order"`
	CategoryName *string   `gorm:"-:migration;->" json:"category_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CookingMinutes returns the product's cooking time, falling back to
// DefaultCookingMinutes when it is unset or not positive.
func (p Product) CookingMinutes() int {
	if p.CookingTime == nil || *p.CookingTime <= 0 {
		return DefaultCookingMinutes
	}
	return *p.CookingTime
}
