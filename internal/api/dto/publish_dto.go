package dto

// PublishRequest 发布请求
type PublishRequest struct {
	ListingID    int64    `json:"listing_id" binding:"required"`
	Marketplaces []string `json:"marketplaces" binding:"required,min=1"`
}

// CopyPasteData 人工辅助发布的结构化内容
// 系统只负责准备内容，最终由用户复制到对应平台手动发帖
type CopyPasteData struct {
	Title        string   `json:"title"`
	Price        string   `json:"price"` // 已格式化，如 "$40.00"
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Instructions []string `json:"instructions"`
	PhotoCount   int      `json:"photo_count"`
}

// PublishResult 单个市场的发布结果
// 每个被请求的市场都必然产出一条记录，失败也不例外
type PublishResult struct {
	Marketplace string `json:"marketplace"`
	Success     bool   `json:"success"`
	ExternalID  string `json:"external_id,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`

	// 失败信息
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// 凭证缺失时给前端的恢复入口 (仅 OAuth 市场)
	AuthorizationURL string `json:"authorization_url,omitempty"`

	// 自动化流程要求邮件确认时为 true，属于成功态
	VerificationRequired bool `json:"verification_required,omitempty"`

	// 人工辅助市场的复制内容
	CopyPasteData *CopyPasteData `json:"copy_paste_data,omitempty"`
}

// PublishBatchResult 批量发布结果，保持请求顺序
type PublishBatchResult struct {
	ListingID    int64           `json:"listing_id"`
	Results      []PublishResult `json:"results"`
	SuccessCount int             `json:"success_count"`
	TotalCount   int             `json:"total_count"`
	Summary      string          `json:"summary"` // "published to X of Y"
}

// ResultFor 按市场名取结果
func (b *PublishBatchResult) ResultFor(marketplace string) *PublishResult {
	for i := range b.Results {
		if b.Results[i].Marketplace == marketplace {
			return &b.Results[i]
		}
	}
	return nil
}
