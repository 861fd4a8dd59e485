package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crosslist_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ListingRepository 商品仓储接口
// 商品的完整 CRUD 属于上游系统，这里只实现发布流程消费的读写面
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	GetByIDAndUser(ctx context.Context, id, userID int64) (*model.Listing, error)
	UpdateStatus(ctx context.Context, id int64, status string) error

	// UpsertMarketplaceStatus 记录商品在某个市场的发布结果
	UpsertMarketplaceStatus(ctx context.Context, status *model.ListingMarketplaceStatus) error
	GetMarketplaceStatuses(ctx context.Context, listingID int64) ([]model.ListingMarketplaceStatus, error)
}

// ErrListingNotFound 商品不存在或不属于该用户
var ErrListingNotFound = errors.New("listing not found")

// ==================== 仓储实现 ====================

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建商品仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, listing *model.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *listingRepo) UpsertMarketplaceStatus(ctx context.Context, status *model.ListingMarketplaceStatus) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_id"}, {Name: "marketplace_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "external_id", "external_url", "last_error", "updated_at",
		}),
	}).Create(status).Error
}

func (r *listingRepo) GetMarketplaceStatuses(ctx context.Context, listingID int64) ([]model.ListingMarketplaceStatus, error) {
	var statuses []model.ListingMarketplaceStatus
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("marketplace_name ASC").
		Find(&statuses).Error
	return statuses, err
}
