package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/api/dto"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
)

// 同一批次内并行发布的市场数上限
const defaultMaxParallel = 4

// PublishOrchestrator 批量发布编排
// 一次请求把一个商品发到多个市场：各市场完全独立，互不影响；
// 结果按请求顺序返回，每个被请求的市场必然有一条结果
type PublishOrchestrator struct {
	registry    *adapter.Registry
	AccountRepo repository.AccountRepository
	ListingRepo repository.ListingRepository
	tokens      *TokenLifecycleManager
	oauth       *OAuthService
	maxParallel int
}

// NewPublishOrchestrator 工厂方法
func NewPublishOrchestrator(registry *adapter.Registry, accountRepo repository.AccountRepository,
	listingRepo repository.ListingRepository, tokens *TokenLifecycleManager, oauth *OAuthService) *PublishOrchestrator {
	return &PublishOrchestrator{
		registry:    registry,
		AccountRepo: accountRepo,
		ListingRepo: listingRepo,
		tokens:      tokens,
		oauth:       oauth,
		maxParallel: defaultMaxParallel,
	}
}

// Publish 把商品发布到一批市场
// 商品不存在是批次级错误直接返回；其余一切失败都收敛成单市场结果
func (o *PublishOrchestrator) Publish(ctx context.Context, userID int64, req *dto.PublishRequest) (*dto.PublishBatchResult, error) {
	// 1. 查商品，商品层面只查这一次
	listing, err := o.ListingRepo.GetByIDAndUser(ctx, req.ListingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, adapter.NewError(adapter.CodeListingNotFound, "load_listing",
				fmt.Sprintf("商品 %d 不存在", req.ListingID))
		}
		return nil, err
	}

	// 2. 各市场并行发布，有界并发
	results := make([]dto.PublishResult, len(req.Marketplaces))
	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup

	for i, name := range req.Marketplaces {
		// 批次中途取消：余下市场不再发起，直接收敛为失败结果
		if ctx.Err() != nil {
			results[i] = dto.PublishResult{
				Marketplace: name,
				ErrorCode:   adapter.CodeInternal,
				Error:       fmt.Sprintf("batch canceled: %v", ctx.Err()),
			}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, marketplace string) {
			defer wg.Done()
			defer func() { <-sem }()
			// 单个市场 panic 不能带崩整个批次
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Publish] %s 发布 panic: %v", marketplace, r)
					results[idx] = dto.PublishResult{
						Marketplace: marketplace,
						ErrorCode:   adapter.CodeInternal,
						Error:       fmt.Sprintf("internal panic: %v", r),
					}
				}
			}()
			results[idx] = o.publishOne(ctx, userID, listing, marketplace)
		}(i, name)
	}
	wg.Wait()

	// 3. 汇总：至少一个市场成功就把商品标记为已发布
	batch := &dto.PublishBatchResult{
		ListingID:  listing.ID,
		Results:    results,
		TotalCount: len(results),
	}
	for _, r := range results {
		if r.Success {
			batch.SuccessCount++
		}
	}
	batch.Summary = fmt.Sprintf("published to %d of %d", batch.SuccessCount, batch.TotalCount)

	if batch.SuccessCount > 0 && listing.Status != model.ListingStatusPublished {
		if err := o.ListingRepo.UpdateStatus(ctx, listing.ID, model.ListingStatusPublished); err != nil {
			log.Printf("[Publish] 更新商品状态失败 listing=%d: %v", listing.ID, err)
		}
	}

	log.Printf("[Publish] 商品 %d %s", listing.ID, batch.Summary)
	return batch, nil
}

// ==================== 单市场发布 ====================

func (o *PublishOrchestrator) publishOne(ctx context.Context, userID int64, listing *model.Listing, marketplace string) dto.PublishResult {
	result := dto.PublishResult{Marketplace: marketplace}

	// 1. 市场必须已注册
	entry, ok := o.registry.Resolve(marketplace)
	if !ok {
		result.ErrorCode = adapter.CodeInternal
		result.Error = fmt.Sprintf("未注册的市场: %s", marketplace)
		return result
	}

	spec := o.buildSpec(listing, marketplace)

	var outcome *adapter.PublishOutcome
	var err error

	if entry.Kind == adapter.KindAssistedCopy {
		// 2. 人工辅助市场不依赖任何已存凭证，直接生成发帖内容
		outcome, err = o.runAdapter(ctx, entry, &adapter.Credential{}, spec, marketplace)
	} else {
		// 2. 查凭证，没连接过直接短路并给恢复入口
		account, aerr := o.AccountRepo.GetActive(ctx, userID, marketplace)
		if aerr != nil {
			if errors.Is(aerr, repository.ErrAccountNotFound) {
				result.ErrorCode = adapter.CodeCredentialMissing
				result.Error = fmt.Sprintf("尚未连接 %s", marketplace)
				o.attachAuthURL(&result, entry, userID, marketplace)
				return result
			}
			result.ErrorCode = adapter.CodeInternal
			result.Error = aerr.Error()
			return result
		}

		// 3. 托管凭证执行两段式发布
		err = o.tokens.Do(ctx, account, func(cred *adapter.Credential) error {
			out, derr := o.runAdapter(ctx, entry, cred, spec, marketplace)
			if derr != nil {
				return derr
			}
			outcome = out
			return nil
		})
	}

	// 4. 结果归一化并落发布记录
	if err != nil {
		result.ErrorCode = adapter.CodeOf(err)
		result.Error = err.Error()
		if result.ErrorCode == adapter.CodeCredentialExpired {
			o.attachAuthURL(&result, entry, userID, marketplace)
		}
		o.recordStatus(ctx, listing.ID, marketplace, model.MarketplaceStatusFailed, "", "", err.Error())
		return result
	}

	result.Success = true
	result.ExternalID = outcome.ExternalID
	result.ExternalURL = outcome.ExternalURL
	result.VerificationRequired = outcome.VerificationRequired
	if outcome.CopyPaste != nil {
		result.CopyPasteData = &dto.CopyPasteData{
			Title:        outcome.CopyPaste.Title,
			Price:        outcome.CopyPaste.Price,
			Description:  outcome.CopyPaste.Description,
			Category:     outcome.CopyPaste.Category,
			Instructions: outcome.CopyPaste.Instructions,
			PhotoCount:   outcome.CopyPaste.PhotoCount,
		}
	}
	o.recordStatus(ctx, listing.ID, marketplace, model.MarketplaceStatusPublished,
		outcome.ExternalID, outcome.ExternalURL, "")
	return result
}

// runAdapter 可用性检查 + 两段式发布
func (o *PublishOrchestrator) runAdapter(ctx context.Context, entry adapter.Entry,
	cred *adapter.Credential, spec *adapter.ListingSpec, marketplace string) (*adapter.PublishOutcome, error) {
	ad := entry.Factory(cred)
	if !ad.IsAvailable(ctx) {
		code := adapter.CodeProviderUnavailable
		if entry.Kind == adapter.KindAutomation {
			code = adapter.CodeAutomationUnavailable
		}
		return nil, adapter.NewError(code, "availability_check",
			fmt.Sprintf("%s 当前不可用", marketplace))
	}

	handle, err := ad.CreateDraft(ctx, spec)
	if err != nil {
		return nil, err
	}
	return ad.Publish(ctx, handle)
}

// buildSpec 本地商品 -> 发布快照
// SKU 按 (商品, 市场) 固定生成，重试时提供方据此幂等去重
func (o *PublishOrchestrator) buildSpec(listing *model.Listing, marketplace string) *adapter.ListingSpec {
	return &adapter.ListingSpec{
		ListingID:    listing.ID,
		SKU:          fmt.Sprintf("CL-%d-%s", listing.ID, marketplace),
		Title:        listing.Title,
		Description:  listing.Description,
		Price:        listing.GetPrice(),
		CurrencyCode: listing.CurrencyCode,
		Category:     listing.Category,
		Condition:    listing.Condition,
		Brand:        listing.Brand,
		Photos:       listing.Photos,
		Fulfillment:  listing.FulfillmentType,
		City:         listing.City,
		PostalCode:   listing.PostalCode,
	}
}

// attachAuthURL OAuth 市场凭证缺失/失效时附上授权链接
func (o *PublishOrchestrator) attachAuthURL(result *dto.PublishResult, entry adapter.Entry, userID int64, marketplace string) {
	if !entry.OAuthCapable || o.oauth == nil {
		return
	}
	authURL, err := o.oauth.GetAuthorizationURL(userID, marketplace)
	if err != nil {
		log.Printf("[Publish] 生成 %s 授权链接失败: %v", marketplace, err)
		return
	}
	result.AuthorizationURL = authURL
}

// recordStatus 记录商品在该市场的发布结果，失败不阻断主流程
func (o *PublishOrchestrator) recordStatus(ctx context.Context, listingID int64, marketplace, status, externalID, externalURL, lastError string) {
	err := o.ListingRepo.UpsertMarketplaceStatus(ctx, &model.ListingMarketplaceStatus{
		ListingID:       listingID,
		MarketplaceName: marketplace,
		Status:          status,
		ExternalID:      externalID,
		ExternalURL:     externalURL,
		LastError:       lastError,
	})
	if err != nil {
		log.Printf("[Publish] 记录发布状态失败 listing=%d market=%s: %v", listingID, marketplace, err)
	}
}
