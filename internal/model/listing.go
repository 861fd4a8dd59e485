package model

import (
	"gorm.io/datatypes"
)

// Listing 状态常量
const (
	ListingStatusDraft     = "draft"
	ListingStatusPublished = "published"
)

// 单个市场上的发布状态
const (
	MarketplaceStatusPending   = "pending"
	MarketplaceStatusPublished = "published"
	MarketplaceStatusFailed    = "failed"
)

// Listing 本地商品记录
// 商品的创建/编辑属于上游系统，这里只保留发布流程需要读写的字段
type Listing struct {
	BaseModel

	UserID      int64  `gorm:"index;not null" json:"user_id"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	// 价格以分存储，避免浮点精度问题
	PriceAmount  int64  `gorm:"not null" json:"price_amount"`
	PriceDivisor int64  `gorm:"default:100" json:"price_divisor"`
	CurrencyCode string `gorm:"size:10;default:'USD'" json:"currency_code"`

	Category        string `gorm:"size:100" json:"category"`
	Condition       string `gorm:"size:50" json:"condition"`
	Brand           string `gorm:"size:100" json:"brand"`
	FulfillmentType string `gorm:"size:30;default:'shipping'" json:"fulfillment_type"`
	City            string `gorm:"size:100" json:"city"`
	PostalCode      string `gorm:"size:20" json:"postal_code"`

	Photos datatypes.JSONSlice[string] `json:"photos"`

	Status string `gorm:"size:20;default:'draft';index" json:"status"`

	// 各市场发布结果 (Has Many)
	MarketplaceStatuses []ListingMarketplaceStatus `gorm:"foreignKey:ListingID" json:"marketplace_statuses,omitempty"`
}

func (Listing) TableName() string {
	return "listings"
}

// GetPrice 元为单位的价格
func (l *Listing) GetPrice() float64 {
	if l.PriceDivisor == 0 {
		return 0
	}
	return float64(l.PriceAmount) / float64(l.PriceDivisor)
}

// SetPrice 以元为单位写入价格
func (l *Listing) SetPrice(price float64) {
	l.PriceAmount = int64(price * 100)
	l.PriceDivisor = 100
}

// ListingMarketplaceStatus 商品在某个市场的发布记录
type ListingMarketplaceStatus struct {
	BaseModel

	ListingID       int64  `gorm:"index;uniqueIndex:idx_listing_marketplace;not null" json:"listing_id"`
	MarketplaceName string `gorm:"size:50;uniqueIndex:idx_listing_marketplace;not null" json:"marketplace_name"`

	Status      string `gorm:"size:20;default:'pending'" json:"status"`
	ExternalID  string `gorm:"size:100" json:"external_id"`
	ExternalURL string `gorm:"size:500" json:"external_url"`
	LastError   string `gorm:"type:text" json:"last_error"`
}

func (ListingMarketplaceStatus) TableName() string {
	return "listing_marketplace_statuses"
}
