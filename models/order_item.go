package models

// OrderItem is a snapshot of a product line taken when the order was placed.
// Later menu edits never touch it.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"not null;index" json:"order_id"`
	Order       *Order  `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ProductID   uint    `gorm:"not null;index" json:"product_id"`
	ProductName string  `gorm:"type:varchar(255);not null" json:"product_name"`
	Price       int64   `gorm:"not null" json:"price"`
	Quantity    int     `gorm:"not null;default:1" json:"quantity"`
	Subtotal    int64   `gorm:"not null" json:"subtotal"`
	Notes       *string `gorm:"type:text" json:"notes"`
}
