package adapter

import (
	"context"
	"sync"
)

// ==================== 能力契约 ====================

// ListingSpec 一次发布的商品快照
// 从本地 Listing 转换而来，发布过程中不可变
type ListingSpec struct {
	ListingID    int64
	SKU          string // 幂等键，由编排层生成并保持稳定
	Title        string
	Description  string
	Price        float64
	CurrencyCode string
	Category     string
	Condition    string
	Brand        string
	Photos       []string
	Fulfillment  string // shipping / pickup
	City         string
	PostalCode   string
}

// Credential 解密后的市场凭证，只存在于一次调用的内存里
type Credential struct {
	Email       string
	Password    string
	AccessToken string
}

// DraftHandle 提供方上尚未公开的草稿引用
type DraftHandle struct {
	Marketplace string
	ExternalID  string   // 提供方草稿/offer 标识
	SKU         string
	Photos      []string // Publish 阶段还要用的图片 URL
	Extra       map[string]string // 提供方特有的中间态 (如 etsy shop_id)
}

// CopyPayload 人工辅助发布的结构化内容
type CopyPayload struct {
	Title        string
	Price        string
	Description  string
	Category     string
	Instructions []string
	PhotoCount   int
}

// PublishOutcome 发布动作的结果
type PublishOutcome struct {
	ExternalID  string
	ExternalURL string

	// 自动化流程停在邮件确认页时为 true，属于成功态而非失败
	VerificationRequired bool

	// 人工辅助市场返回的复制内容；"成功"只代表内容已生成
	CopyPaste *CopyPayload
}

// MarketplaceAdapter 三种集成方式的统一能力集
// 实现必须是单次调用实例：凭证随构造传入，不跨调用共享可变状态
type MarketplaceAdapter interface {
	CreateDraft(ctx context.Context, spec *ListingSpec) (*DraftHandle, error)
	Publish(ctx context.Context, handle *DraftHandle) (*PublishOutcome, error)
	IsAvailable(ctx context.Context) bool
}

// ==================== 注册表 ====================

// Kind 集成方式
type Kind string

const (
	KindAPI          Kind = "api"        // 官方 REST API 多步管线
	KindAutomation   Kind = "automation" // 浏览器自动化
	KindAssistedCopy Kind = "copy"       // 仅生成复制内容，人工发帖
)

// Factory 按凭证构造一次性 adapter 实例
type Factory func(cred *Credential) MarketplaceAdapter

// Entry 注册表条目
type Entry struct {
	Kind         Kind
	OAuthCapable bool // 凭证缺失时是否能下发授权链接
	Factory      Factory
}

// Registry 市场名 -> adapter 条目
// 编排层对市场一无所知，新增市场只改注册表
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register 注册一个市场
func (r *Registry) Register(name string, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry
}

// Resolve 查找市场条目
func (r *Registry) Resolve(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry, ok
}

// Names 已注册的市场名列表
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
