// internal/domain/order/entity.go
package order

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// CheckoutMode records which checkout path produced the order
type CheckoutMode string

const (
	CheckoutModeBag          CheckoutMode = "bag"
	CheckoutModeSelection    CheckoutMode = "selection"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

// ItemType distinguishes the box line from add-on lines
type ItemType string

const (
	ItemTypeBox      ItemType = "box"
	ItemTypeAddon    ItemType = "addon"
	ItemTypeDelivery ItemType = "delivery"
)

// Order is a checkout attempt and, once paid, a purchase
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        *uint         `gorm:"index" json:"user_id"` // Nullable for orders reconciled from unknown sessions
	WeeklyBagID   *uint         `gorm:"index" json:"weekly_bag_id"`
	WeekStartDate string        `gorm:"size:10;index" json:"week_start_date"`
	CheckoutMode  CheckoutMode  `gorm:"not null;size:20" json:"checkout_mode"`
	Status        OrderStatus   `gorm:"not null;size:30;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;size:30;index" json:"payment_status"`

	Contact  Contact `gorm:"embedded" json:"contact"`
	Delivery Address `gorm:"embedded" json:"delivery_address"`

	// Financial Information (cents)
	BoxSize     string `gorm:"size:20" json:"box_size"`
	BoxPrice    int64  `gorm:"not null" json:"box_price"`
	AddonsTotal int64  `gorm:"not null" json:"addons_total"`
	DeliveryFee int64  `gorm:"not null" json:"delivery_fee"`
	Subtotal    int64  `gorm:"not null" json:"subtotal"`
	TotalAmount int64  `gorm:"not null" json:"total_amount"`
	Currency    string `gorm:"size:3" json:"currency"`

	// Payment provider
	ProviderSessionID string         `gorm:"uniqueIndex;size:255" json:"provider_session_id"`
	PaymentIntentID   string         `gorm:"size:255" json:"payment_intent_id"`
	SessionSnapshot   datatypes.JSON `json:"session_snapshot,omitempty"`
	SessionExpiresAt  *time.Time     `json:"session_expires_at,omitempty"`
	PaidAt            *time.Time     `json:"paid_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"order_id"`
	ProductID       *uint     `gorm:"index" json:"product_id"` // nil for the box and delivery lines
	WeeklyBagItemID *uint     `gorm:"index" json:"weekly_bag_item_id"`
	ProductName     string    `gorm:"not null;size:255" json:"product_name"`
	ItemType        ItemType  `gorm:"not null;size:20" json:"item_type"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	Price           int64     `gorm:"not null" json:"price"`       // Price per unit in cents
	TotalPrice      int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt       time.Time `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy *uint       `gorm:"index" json:"created_by"` // nil for system changes
	CreatedAt time.Time   `json:"created_at"`
}

// Contact is who the box is for
type Contact struct {
	FirstName string `gorm:"size:100" json:"first_name" binding:"required,max=100"`
	LastName  string `gorm:"size:100" json:"last_name" binding:"required,max=100"`
	Email     string `gorm:"size:255;index" json:"email" binding:"required,email"`
	Phone     string `gorm:"size:20" json:"phone" binding:"required"`
}

// Address is where the box goes (embedded in Order)
type Address struct {
	AddressLine1  string `gorm:"size:255" json:"address_line1" binding:"required"`
	AddressLine2  string `gorm:"size:255" json:"address_line2"`
	City          string `gorm:"size:100" json:"city" binding:"required"`
	State         string `gorm:"size:50" json:"state" binding:"required"`
	Zip           string `gorm:"size:10;index" json:"zip" binding:"required"`
	DeliveryNotes string `gorm:"type:text" json:"delivery_notes"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// FullName joins the contact's first and last name
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Lines returns the printable address lines
func (a Address) Lines() []string {
	lines := []string{a.AddressLine1}
	if a.AddressLine2 != "" {
		lines = append(lines, a.AddressLine2)
	}
	if a.City != "" || a.State != "" || a.Zip != "" {
		lines = append(lines, strings.TrimSpace(a.City+", "+a.State+" "+a.Zip))
	}
	return lines
}

// IsPaid reports whether the payment settled
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// AddonLines returns the add-on lines that point back at a bag item
func (o *Order) AddonLines() []OrderItem {
	var lines []OrderItem
	for _, item := range o.Items {
		if item.ItemType == ItemTypeAddon && item.WeeklyBagItemID != nil {
			lines = append(lines, item)
		}
	}
	return lines
}

// ValidStatuses lists every order status an admin may set
var ValidStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusConfirmed, OrderStatusPacked, OrderStatusOutForDelivery,
	OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded,
}
