package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	OrderStatusCompleted = "completed"
)

type Category struct {
	ID          uint      `gorm:"primaryKey"                 json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"not null;default:''"        json:"description"`
	CreatedAt   time.Time `                                  json:"created_at"`
	UpdatedAt   time.Time `                                  json:"updated_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey"                         json:"id"`
	CategoryID  uint            `gorm:"index;not null"                     json:"category_id"`
	Category    *Category       `gorm:"constraint:OnDelete:CASCADE"        json:"category,omitempty"`
	Name        string          `gorm:"size:200;not null"                  json:"name"`
	Brand       string          `gorm:"size:100;not null"                  json:"brand"`
	Model       string          `gorm:"size:100;not null"                  json:"model"`
	Description string          `gorm:"not null;default:''"                json:"description"`
	Specs       string          `gorm:"not null;default:''"                json:"specs"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"        json:"price"`
	Stock       uint            `gorm:"not null;default:0;check:stock>=0"  json:"stock"`
	ImageURL    string          `gorm:"not null;default:''"                json:"image_url"`
	CreatedAt   time.Time       `gorm:"index"                              json:"created_at"`
	UpdatedAt   time.Time       `                                          json:"updated_at"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"       json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string    `gorm:"not null;default:''"        json:"email"`
	PasswordHash string    `gorm:"not null"                   json:"-"`
	Role         string    `gorm:"not null;default:user"      json:"role"`
	CreatedAt    time.Time `                                  json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RefreshToken stores the sha256 of an issued refresh token, never the token.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	TokenHash string    `gorm:"uniqueIndex;not null"  json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt time.Time `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt time.Time `                             json:"created_at"`
}

// Cart is created lazily; the unique user_id makes concurrent creation safe.
type Cart struct {
	ID        uint       `gorm:"primaryKey"                    json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE"   json:"items,omitempty"`
	CreatedAt time.Time  `                                     json:"created_at"`
	UpdatedAt time.Time  `                                     json:"updated_at"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                json:"id"`
	CartID    uint      `gorm:"uniqueIndex:idx_cart_product;not null"     json:"cart_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product;index;not null" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE"               json:"product,omitempty"`
	Quantity  uint      `gorm:"not null;check:quantity>0"                 json:"quantity"`
	CreatedAt time.Time `                                                 json:"created_at"`
	UpdatedAt time.Time `                                                 json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Order is the receipt written by checkout.
type Order struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"    json:"user_id"`
	Status    string          `gorm:"not null"                    json:"status"`
	ItemCount uint            `gorm:"not null"                    json:"item_count"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time       `gorm:"index"                       json:"created_at"`
}

// OrderItem snapshots the product at purchase time; product_id is not a foreign key.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Name      string          `gorm:"not null"                    json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Quantity  uint            `gorm:"not null;check:quantity>0"   json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Category{}, &Product{}, &User{}, &RefreshToken{},
		&Cart{}, &CartItem{}, &Order{}, &OrderItem{},
	}
}

// Tables lists table names children first, the order a reset needs.
func Tables() []string {
	return []string{
		"order_items", "orders", "cart_items", "carts",
		"refresh_tokens", "users", "products", "categories",
	}
}

func (p *Product) LineTotal(qty uint) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(qty)))
}
