package automation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"crosslist_v1_202608/internal/adapter"
)

// ==================== 状态机定义 ====================

// flowState craigslist 发帖流程状态
type flowState string

const (
	stateDisconnected     flowState = "disconnected"
	stateLoggedIn         flowState = "logged_in"
	stateCategorySelected flowState = "category_selected"
	stateFormFilled       flowState = "form_filled"
	stateImagesHandled    flowState = "images_handled"
	stateSubmitted        flowState = "submitted"
	stateDone             flowState = "done"
	stateAwaitingVerify   flowState = "awaiting_verification"
	stateFailed           flowState = "failed"
)

// 页面选择器，craigslist 改版时只改这里
const (
	selLoginEmail    = "#inputEmailHandle"
	selLoginPassword = "#inputPassword"
	selLoginSubmit   = "button.accountform-btn"
	selLoginError    = ".login-box .error"
	selAccountHome   = ".account-homepage-jumbotron"

	selPostingType  = `input[name="id"][value="fso"]` // for sale by owner
	selTitle        = "#PostingTitle"
	selPrice        = "#Ask"
	selPostal       = "#postal_code"
	selBody         = "#PostingBody"
	selContinue     = "button.go"
	selPublishBtn   = "button[name='go']"
	selPostedNotice = ".postingtitle"
	selVerifyNotice = ".mail-verification"
)

// CraigslistAdapter 浏览器自动化发帖
// craigslist 没有开放发帖 API，整个流程在无头浏览器里走显式状态机：
// disconnected -> logged_in -> category_selected -> form_filled
//   -> images_handled -> submitted -> done / awaiting_verification / failed
// 任何一步元素没出现即进 failed，带着当时的状态名返回
type CraigslistAdapter struct {
	sessions SessionProvider
	cred     *adapter.Credential
	spec     *adapter.ListingSpec
	state    flowState
}

// NewCraigslistAdapter 按凭证构造一次性实例
func NewCraigslistAdapter(sessions SessionProvider, cred *adapter.Credential) *CraigslistAdapter {
	return &CraigslistAdapter{
		sessions: sessions,
		cred:     cred,
		state:    stateDisconnected,
	}
}

// CreateDraft craigslist 没有远端草稿，这一步只做校验和发帖计划
func (a *CraigslistAdapter) CreateDraft(ctx context.Context, spec *adapter.ListingSpec) (*adapter.DraftHandle, error) {
	if a.cred == nil || a.cred.Email == "" || a.cred.Password == "" {
		return nil, adapter.NewError(adapter.CodeCredentialMissing, "build_plan", "craigslist 需要账号密码")
	}
	if strings.TrimSpace(spec.Title) == "" {
		return nil, adapter.NewError(adapter.CodeProviderRejected, "build_plan", "标题不能为空")
	}

	a.spec = spec
	return &adapter.DraftHandle{
		Marketplace: "craigslist",
		SKU:         spec.SKU,
		Extra: map[string]string{
			"city":     adapter.MapCraigslistCity(spec.City),
			"category": adapter.MapCraigslistCategory(spec.Category),
		},
	}, nil
}

// Publish 在浏览器里走完整个发帖状态机
func (a *CraigslistAdapter) Publish(ctx context.Context, handle *adapter.DraftHandle) (*adapter.PublishOutcome, error) {
	if a.spec == nil {
		return nil, adapter.NewError(adapter.CodeInternal, "build_plan", "CreateDraft 未调用")
	}

	// 1. 起会话，起不来属于后端不可用而不是页面失败
	driver, err := a.sessions.Acquire(ctx)
	if err != nil {
		return nil, adapter.WrapError(adapter.CodeAutomationUnavailable, "acquire_session", err)
	}
	defer driver.Close()

	// 2. 逐状态推进，任何一步失败带着状态名退出
	if err := a.login(ctx, driver); err != nil {
		return nil, a.fail(err)
	}
	if err := a.selectCategory(ctx, driver, handle); err != nil {
		return nil, a.fail(err)
	}
	if err := a.fillForm(ctx, driver, handle); err != nil {
		return nil, a.fail(err)
	}
	a.skipImages()
	if err := a.submit(ctx, driver); err != nil {
		return nil, a.fail(err)
	}

	return a.finish(ctx, driver)
}

// IsAvailable 浏览器后端在才可用
func (a *CraigslistAdapter) IsAvailable(ctx context.Context) bool {
	return a.sessions != nil && a.sessions.Available(ctx)
}

// ==================== 状态推进 ====================

// login disconnected -> logged_in
func (a *CraigslistAdapter) login(ctx context.Context, d PageDriver) error {
	if err := d.Navigate(ctx, "https://accounts.craigslist.org/login"); err != nil {
		return a.stepErr("open_login", err)
	}
	if err := d.Fill(ctx, selLoginEmail, a.cred.Email); err != nil {
		return a.stepErr("fill_email", err)
	}
	if err := d.Fill(ctx, selLoginPassword, a.cred.Password); err != nil {
		return a.stepErr("fill_password", err)
	}
	if err := d.Click(ctx, selLoginSubmit); err != nil {
		return a.stepErr("submit_login", err)
	}

	// 密码错误时页面留在登录页并带错误条
	if bad, _ := d.Exists(ctx, selLoginError); bad {
		msg, _ := d.Text(ctx, selLoginError)
		return adapter.NewError(adapter.CodeCredentialExpired, "submit_login",
			fmt.Sprintf("craigslist 登录被拒: %s", strings.TrimSpace(msg)))
	}
	if err := d.WaitVisible(ctx, selAccountHome); err != nil {
		return a.stepErr("wait_account_home", err)
	}

	a.state = stateLoggedIn
	return nil
}

// selectCategory logged_in -> category_selected
func (a *CraigslistAdapter) selectCategory(ctx context.Context, d PageDriver, handle *adapter.DraftHandle) error {
	city := handle.Extra["city"]
	category := handle.Extra["category"]

	if err := d.Navigate(ctx, fmt.Sprintf("https://post.craigslist.org/c/%s", city)); err != nil {
		return a.stepErr("open_post_page", err)
	}
	if err := d.Click(ctx, selPostingType); err != nil {
		return a.stepErr("choose_posting_type", err)
	}
	if err := d.Click(ctx, selContinue); err != nil {
		return a.stepErr("confirm_posting_type", err)
	}
	if err := d.Click(ctx, fmt.Sprintf(`input[name="id"][value="%s"]`, category)); err != nil {
		return a.stepErr("choose_category", err)
	}
	if err := d.Click(ctx, selContinue); err != nil {
		return a.stepErr("confirm_category", err)
	}

	a.state = stateCategorySelected
	return nil
}

// fillForm category_selected -> form_filled
func (a *CraigslistAdapter) fillForm(ctx context.Context, d PageDriver, handle *adapter.DraftHandle) error {
	spec := a.spec

	if err := d.Fill(ctx, selTitle, spec.Title); err != nil {
		return a.stepErr("fill_title", err)
	}
	if err := d.Fill(ctx, selPrice, fmt.Sprintf("%.0f", spec.Price)); err != nil {
		return a.stepErr("fill_price", err)
	}
	if spec.PostalCode != "" {
		if err := d.Fill(ctx, selPostal, spec.PostalCode); err != nil {
			return a.stepErr("fill_postal", err)
		}
	}
	if err := d.Fill(ctx, selBody, spec.Description); err != nil {
		return a.stepErr("fill_body", err)
	}

	a.state = stateFormFilled
	return nil
}

// skipImages form_filled -> images_handled
// 图片上传涉及本地文件对话框，无头环境下直接跳过，发帖不带图
func (a *CraigslistAdapter) skipImages() {
	if len(a.spec.Photos) > 0 {
		log.Printf("[Craigslist] 跳过 %d 张图片，无头环境不走上传对话框", len(a.spec.Photos))
	}
	a.state = stateImagesHandled
}

// submit images_handled -> submitted
func (a *CraigslistAdapter) submit(ctx context.Context, d PageDriver) error {
	if err := d.Click(ctx, selContinue); err != nil {
		return a.stepErr("continue_to_review", err)
	}
	if err := d.Click(ctx, selPublishBtn); err != nil {
		return a.stepErr("publish", err)
	}
	a.state = stateSubmitted
	return nil
}

// finish submitted -> done / awaiting_verification
func (a *CraigslistAdapter) finish(ctx context.Context, d PageDriver) (*adapter.PublishOutcome, error) {
	// craigslist 对新账号/新城市要求邮件确认，这是成功态而不是失败
	if pending, _ := d.Exists(ctx, selVerifyNotice); pending {
		a.state = stateAwaitingVerify
		log.Printf("[Craigslist] 帖子待邮件确认")
		return &adapter.PublishOutcome{VerificationRequired: true}, nil
	}

	if err := d.WaitVisible(ctx, selPostedNotice); err != nil {
		return nil, a.fail(a.stepErr("confirm_posted", err))
	}

	url, err := d.CurrentURL(ctx)
	if err != nil {
		return nil, a.fail(a.stepErr("read_post_url", err))
	}

	a.state = stateDone
	return &adapter.PublishOutcome{
		ExternalID:  externalIDFromURL(url),
		ExternalURL: url,
	}, nil
}

// ==================== 辅助 ====================

// fail 进入 failed 态并原样抛出
func (a *CraigslistAdapter) fail(err error) error {
	a.state = stateFailed
	return err
}

// stepErr 页面步骤失败，带上当时的状态和步骤名
func (a *CraigslistAdapter) stepErr(step string, err error) error {
	return adapter.WrapError(adapter.CodeAutomationStepFailed,
		fmt.Sprintf("%s/%s", a.state, step), err)
}

// externalIDFromURL 从帖子地址里截出帖子 ID (路径最后一段数字)
func externalIDFromURL(url string) string {
	trimmed := strings.TrimSuffix(url, ".html")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
