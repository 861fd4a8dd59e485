package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crosslist_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// AccountRepository 市场账号仓储接口
type AccountRepository interface {
	// Upsert 按 (user_id, marketplace_name) 冲突合并
	// 断开后重连走同一行，is_active 复位为 true
	Upsert(ctx context.Context, account *model.MarketplaceAccount) error

	GetActive(ctx context.Context, userID int64, marketplace string) (*model.MarketplaceAccount, error)
	Get(ctx context.Context, userID int64, marketplace string) (*model.MarketplaceAccount, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]model.MarketplaceAccount, error)

	Deactivate(ctx context.Context, userID int64, marketplace string) error
	UpdateToken(ctx context.Context, id int64, encryptedAccess, encryptedRefresh string, expiresAt int64) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// FindExpiringTokens 查找 Token 即将过期的活跃 OAuth 账号 (供定时刷新任务)
	FindExpiringTokens(ctx context.Context, withinSeconds int64) ([]model.MarketplaceAccount, error)
	// FindAutoSync 查找开启自动同步的活跃账号
	FindAutoSync(ctx context.Context) ([]model.MarketplaceAccount, error)
}

// ErrAccountNotFound 账号不存在或未激活
var ErrAccountNotFound = errors.New("marketplace account not found")

// ==================== 仓储实现 ====================

type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepository 创建市场账号仓储
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Upsert(ctx context.Context, account *model.MarketplaceAccount) error {
	// 依赖联合唯一索引收敛并发连接：冲突时更新凭证并复活该行
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "marketplace_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_name", "email", "encrypted_password",
			"access_token", "refresh_token", "token_expires_at",
			"is_active", "updated_at",
		}),
	}).Create(account).Error
}

func (r *accountRepo) GetActive(ctx context.Context, userID int64, marketplace string) (*model.MarketplaceAccount, error) {
	var account model.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND marketplace_name = ? AND is_active = ?", userID, marketplace, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Get(ctx context.Context, userID int64, marketplace string) (*model.MarketplaceAccount, error) {
	var account model.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND marketplace_name = ?", userID, marketplace).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) ListActiveByUser(ctx context.Context, userID int64) ([]model.MarketplaceAccount, error) {
	var accounts []model.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("marketplace_name ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *accountRepo) Deactivate(ctx context.Context, userID int64, marketplace string) error {
	result := r.db.WithContext(ctx).
		Model(&model.MarketplaceAccount{}).
		Where("user_id = ? AND marketplace_name = ?", userID, marketplace).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) UpdateToken(ctx context.Context, id int64, encryptedAccess, encryptedRefresh string, expiresAt int64) error {
	return r.db.WithContext(ctx).
		Model(&model.MarketplaceAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":     encryptedAccess,
			"refresh_token":    encryptedRefresh,
			"token_expires_at": timeFromUnix(expiresAt),
		}).Error
}

func (r *accountRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.MarketplaceAccount{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *accountRepo) FindExpiringTokens(ctx context.Context, withinSeconds int64) ([]model.MarketplaceAccount, error) {
	var accounts []model.MarketplaceAccount
	deadline := nowFunc().Unix() + withinSeconds
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND refresh_token <> '' AND token_expires_at IS NOT NULL AND token_expires_at < ?",
			true, timeFromUnix(deadline)).
		Find(&accounts).Error
	return accounts, err
}

func (r *accountRepo) FindAutoSync(ctx context.Context) ([]model.MarketplaceAccount, error) {
	var accounts []model.MarketplaceAccount
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND auto_sync_enabled = ?", true, true).
		Find(&accounts).Error
	return accounts, err
}
