package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// 单个 listing 最多上传的图片数 (Etsy 平台限制)
const etsyMaxImages = 10

// EtsyConfig Etsy 接入配置
type EtsyConfig struct {
	BaseURL string // 默认 https://openapi.etsy.com
	APIKey  string // x-api-key，应用级密钥
}

// EtsyAdapter Etsy v3 管线
// 1. 查 shop_id -> 2. 建草稿 listing -> 3. 按 rank 上传图片 -> 4. 置为 active
// CreateDraft 覆盖 1-2，Publish 覆盖 3-4；任何一步失败即中止，不回滚
type EtsyAdapter struct {
	config *EtsyConfig
	client *resty.Client
	cred   *Credential
}

// NewEtsyAdapter 按凭证构造一次性实例
func NewEtsyAdapter(config *EtsyConfig, cred *Credential) *EtsyAdapter {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://openapi.etsy.com"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(20 * time.Second).
		SetHeader("x-api-key", config.APIKey).
		SetAuthToken(cred.AccessToken)

	return &EtsyAdapter{config: config, client: client, cred: cred}
}

// ==================== 能力实现 ====================

// CreateDraft 解析店铺并创建草稿 listing
func (a *EtsyAdapter) CreateDraft(ctx context.Context, spec *ListingSpec) (*DraftHandle, error) {
	// 1. 当前 token 对应的 shop_id
	shopID, err := a.resolveShopID(ctx)
	if err != nil {
		return nil, err
	}

	// 2. 创建草稿 listing
	payload := map[string]interface{}{
		"quantity":    1,
		"title":       spec.Title,
		"description": spec.Description,
		"price":       spec.Price,
		"taxonomy_id": MapEtsyTaxonomy(spec.Category),
		"who_made":    "someone_else",
		"when_made":   "2020_2025",
		"is_supply":   false,
		"state":       "draft",
	}

	var result struct {
		ListingID int64 `json:"listing_id"`
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(fmt.Sprintf("/v3/application/shops/%d/listings", shopID))
	if err != nil {
		return nil, WrapError(CodeProviderUnavailable, "create_listing", err)
	}
	if resp.IsError() {
		return nil, StatusError("create_listing", resp.StatusCode(), resp.String())
	}
	if result.ListingID == 0 {
		return nil, NewError(CodeProviderRejected, "create_listing", "响应缺少 listing_id")
	}

	return &DraftHandle{
		Marketplace: "etsy",
		ExternalID:  fmt.Sprintf("%d", result.ListingID),
		SKU:         spec.SKU,
		Photos:      spec.Photos,
		Extra: map[string]string{
			"shop_id": fmt.Sprintf("%d", shopID),
		},
	}, nil
}

// Publish 上传图片后把草稿置为 active
func (a *EtsyAdapter) Publish(ctx context.Context, handle *DraftHandle) (*PublishOutcome, error) {
	shopID := handle.Extra["shop_id"]
	listingID := handle.ExternalID

	// 3. 逐张上传图片 (Extra 里带过来的 URL 列表)
	if err := a.uploadImages(ctx, shopID, listingID, handle); err != nil {
		return nil, err
	}

	// 4. 草稿转 active，对外可见
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{"state": "active"}).
		Patch(fmt.Sprintf("/v3/application/shops/%s/listings/%s", shopID, listingID))
	if err != nil {
		return nil, WrapError(CodeProviderUnavailable, "activate_listing", err)
	}
	if resp.IsError() {
		return nil, StatusError("activate_listing", resp.StatusCode(), resp.String())
	}

	return &PublishOutcome{
		ExternalID:  listingID,
		ExternalURL: fmt.Sprintf("https://www.etsy.com/listing/%s", listingID),
	}, nil
}

// IsAvailable 凭证与应用密钥齐备即认为可用
func (a *EtsyAdapter) IsAvailable(ctx context.Context) bool {
	return a.cred != nil && a.cred.AccessToken != "" && a.config.APIKey != ""
}

// ==================== 管线步骤 ====================

// resolveShopID 通过 /users/me 拿当前 token 的店铺
func (a *EtsyAdapter) resolveShopID(ctx context.Context) (int64, error) {
	var result struct {
		ShopID int64 `json:"shop_id"`
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/v3/application/users/me")
	if err != nil {
		return 0, WrapError(CodeProviderUnavailable, "resolve_shop", err)
	}
	if resp.IsError() {
		return 0, StatusError("resolve_shop", resp.StatusCode(), resp.String())
	}
	if result.ShopID == 0 {
		return 0, NewError(CodeProviderRejected, "resolve_shop", "该账号名下没有店铺")
	}
	return result.ShopID, nil
}

// uploadImages 按 rank 逐张上传，最多 etsyMaxImages 张
func (a *EtsyAdapter) uploadImages(ctx context.Context, shopID, listingID string, handle *DraftHandle) error {
	urls := handle.Photos
	if len(urls) == 0 {
		return nil
	}
	if len(urls) > etsyMaxImages {
		log.Printf("[EtsyAdapter] 图片 %d 张超出上限，截断为 %d 张", len(urls), etsyMaxImages)
		urls = urls[:etsyMaxImages]
	}

	for i, imgURL := range urls {
		rank := i + 1

		// 先下载图片字节，再以 multipart 转交 Etsy
		imgResp, err := a.client.R().SetContext(ctx).Get(imgURL)
		if err != nil {
			return WrapError(CodeProviderUnavailable, fmt.Sprintf("upload_image_%d", rank), err)
		}
		if imgResp.IsError() {
			return NewError(CodeProviderRejected, fmt.Sprintf("upload_image_%d", rank),
				fmt.Sprintf("下载图片失败: %d", imgResp.StatusCode()))
		}

		resp, err := a.client.R().
			SetContext(ctx).
			SetFileReader("image", fmt.Sprintf("image_%d.jpg", rank), bytes.NewReader(imgResp.Body())).
			SetFormData(map[string]string{"rank": fmt.Sprintf("%d", rank)}).
			Post(fmt.Sprintf("/v3/application/shops/%s/listings/%s/images", shopID, listingID))
		if err != nil {
			return WrapError(CodeProviderUnavailable, fmt.Sprintf("upload_image_%d", rank), err)
		}
		if resp.IsError() {
			return StatusError(fmt.Sprintf("upload_image_%d", rank), resp.StatusCode(), resp.String())
		}
	}

	return nil
}
