package adapter

import (
	"context"
	"fmt"
)

// FacebookCopyAdapter 人工辅助发布
// Facebook Marketplace 没有开放 API 也没做自动化，
// 这里确定性地生成结构化内容，由用户复制到站内手动发帖
// 注意："成功" 只代表内容已生成，不代表商品已上架，
// 调用方必须与 API/自动化两类结果区别对待
type FacebookCopyAdapter struct {
	spec *ListingSpec
}

// NewFacebookCopyAdapter 构造实例，人工辅助市场不需要凭证
func NewFacebookCopyAdapter(cred *Credential) *FacebookCopyAdapter {
	return &FacebookCopyAdapter{}
}

// CreateDraft 没有远端草稿，直接把快照挂到 handle 上
func (a *FacebookCopyAdapter) CreateDraft(ctx context.Context, spec *ListingSpec) (*DraftHandle, error) {
	a.spec = spec
	return &DraftHandle{
		Marketplace: "facebook",
		SKU:         spec.SKU,
		Photos:      spec.Photos,
	}, nil
}

// Publish 生成复制内容，永远成功
func (a *FacebookCopyAdapter) Publish(ctx context.Context, handle *DraftHandle) (*PublishOutcome, error) {
	spec := a.spec
	if spec == nil {
		return nil, NewError(CodeInternal, "build_payload", "CreateDraft 未调用")
	}

	category := spec.Category
	if category == "" {
		category = "Miscellaneous"
	}

	payload := &CopyPayload{
		Title:       spec.Title,
		Price:       fmt.Sprintf("$%.2f", spec.Price),
		Description: spec.Description,
		Category:    category,
		PhotoCount:  len(spec.Photos),
		Instructions: []string{
			"1. 打开 Facebook Marketplace，点击 \"Create new listing\"",
			"2. 选择 \"Item for sale\"",
			fmt.Sprintf("3. 上传 %d 张商品图片", len(spec.Photos)),
			"4. 粘贴标题和价格",
			"5. 选择分类: " + category,
			"6. 粘贴描述后点击 \"Publish\"",
		},
	}

	return &PublishOutcome{CopyPaste: payload}, nil
}

// IsAvailable 纯本地生成，永远可用
func (a *FacebookCopyAdapter) IsAvailable(ctx context.Context) bool {
	return true
}
