package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// EbayConfig eBay 接入配置
type EbayConfig struct {
	BaseURL             string // 默认 https://api.ebay.com
	MarketplaceID       string // 默认 EBAY_US
	FulfillmentPolicyID string
	PaymentPolicyID     string
	ReturnPolicyID      string
	MerchantLocationKey string
}

// DefaultEbayConfig 默认配置
func DefaultEbayConfig() *EbayConfig {
	return &EbayConfig{
		BaseURL:       "https://api.ebay.com",
		MarketplaceID: "EBAY_US",
	}
}

// EbayAdapter eBay Inventory API 三步管线
// 1. 按 SKU 建 inventory item -> 2. 建 offer -> 3. publish offer
// 任何一步失败立即中止并返回该步错误，已提交的步骤不回滚
// (eBay 侧可能残留孤儿 inventory/offer，靠稳定 SKU 保证重试幂等)
type EbayAdapter struct {
	config *EbayConfig
	client *resty.Client
	cred   *Credential
}

// NewEbayAdapter 按凭证构造一次性实例
func NewEbayAdapter(config *EbayConfig, cred *Credential) *EbayAdapter {
	if config == nil {
		config = DefaultEbayConfig()
	}
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(20 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Language", "en-US").
		SetAuthToken(cred.AccessToken)

	return &EbayAdapter{config: config, client: client, cred: cred}
}

// ==================== 能力实现 ====================

// CreateDraft 前两步：inventory item + offer
// 返回的 handle 里是 offerId，发布时只需要它
func (a *EbayAdapter) CreateDraft(ctx context.Context, spec *ListingSpec) (*DraftHandle, error) {
	// 1. 创建/覆盖 inventory item (PUT 幂等，重试不产生重复)
	if err := a.putInventoryItem(ctx, spec); err != nil {
		return nil, err
	}

	// 2. 创建 offer (价格/类目/履约策略)
	offerID, err := a.createOffer(ctx, spec)
	if err != nil {
		return nil, err
	}

	return &DraftHandle{
		Marketplace: "ebay",
		ExternalID:  offerID,
		SKU:         spec.SKU,
	}, nil
}

// Publish 第三步：publish offer，拿到对外可见的 listingId
func (a *EbayAdapter) Publish(ctx context.Context, handle *DraftHandle) (*PublishOutcome, error) {
	var result struct {
		ListingID string `json:"listingId"`
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&result).
		Post(fmt.Sprintf("/sell/inventory/v1/offer/%s/publish", handle.ExternalID))
	if err != nil {
		return nil, WrapError(CodeProviderUnavailable, "publish_offer", err)
	}
	if resp.IsError() {
		return nil, StatusError("publish_offer", resp.StatusCode(), resp.String())
	}
	if result.ListingID == "" {
		return nil, NewError(CodeProviderRejected, "publish_offer", "响应缺少 listingId")
	}

	return &PublishOutcome{
		ExternalID:  result.ListingID,
		ExternalURL: fmt.Sprintf("https://www.ebay.com/itm/%s", result.ListingID),
	}, nil
}

// IsAvailable 凭证在手即认为可用，具体失败在管线里暴露
func (a *EbayAdapter) IsAvailable(ctx context.Context) bool {
	return a.cred != nil && a.cred.AccessToken != ""
}

// ==================== 管线步骤 ====================

func (a *EbayAdapter) putInventoryItem(ctx context.Context, spec *ListingSpec) error {
	imageUrls := spec.Photos
	if len(imageUrls) > 10 {
		imageUrls = imageUrls[:10]
	}

	payload := map[string]interface{}{
		"product": map[string]interface{}{
			"title":       spec.Title,
			"description": spec.Description,
			"imageUrls":   imageUrls,
		},
		"condition": MapEbayCondition(spec.Condition),
		"availability": map[string]interface{}{
			"shipToLocationAvailability": map[string]interface{}{
				"quantity": 1,
			},
		},
	}
	if spec.Brand != "" {
		payload["product"].(map[string]interface{})["brand"] = spec.Brand
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(payload).
		Put(fmt.Sprintf("/sell/inventory/v1/inventory_item/%s", spec.SKU))
	if err != nil {
		return WrapError(CodeProviderUnavailable, "create_inventory_item", err)
	}
	if resp.IsError() {
		return StatusError("create_inventory_item", resp.StatusCode(), resp.String())
	}
	return nil
}

func (a *EbayAdapter) createOffer(ctx context.Context, spec *ListingSpec) (string, error) {
	currency := spec.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	payload := map[string]interface{}{
		"sku":               spec.SKU,
		"marketplaceId":     a.config.MarketplaceID,
		"format":            "FIXED_PRICE",
		"availableQuantity": 1,
		"categoryId":        MapEbayCategory(spec.Category),
		"pricingSummary": map[string]interface{}{
			"price": map[string]interface{}{
				"value":    fmt.Sprintf("%.2f", spec.Price),
				"currency": currency,
			},
		},
	}

	// 履约/支付/退货策略是账号级配置，缺省时交给 eBay 默认值
	policies := map[string]interface{}{}
	if a.config.FulfillmentPolicyID != "" {
		policies["fulfillmentPolicyId"] = a.config.FulfillmentPolicyID
	}
	if a.config.PaymentPolicyID != "" {
		policies["paymentPolicyId"] = a.config.PaymentPolicyID
	}
	if a.config.ReturnPolicyID != "" {
		policies["returnPolicyId"] = a.config.ReturnPolicyID
	}
	if len(policies) > 0 {
		payload["listingPolicies"] = policies
	}
	if a.config.MerchantLocationKey != "" {
		payload["merchantLocationKey"] = a.config.MerchantLocationKey
	}

	var result struct {
		OfferID string `json:"offerId"`
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/sell/inventory/v1/offer")
	if err != nil {
		return "", WrapError(CodeProviderUnavailable, "create_offer", err)
	}
	if resp.IsError() {
		return "", StatusError("create_offer", resp.StatusCode(), resp.String())
	}
	if result.OfferID == "" {
		return "", NewError(CodeProviderRejected, "create_offer", "响应缺少 offerId")
	}
	return result.OfferID, nil
}
