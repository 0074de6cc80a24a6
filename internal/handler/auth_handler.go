package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// 認証画面のタブ
const (
	tabLogin    = "login"
	tabRegister = "register"
	tabForgot   = "forgot"
)

const forgotPasswordNotice = "パスワード再設定の手順をメールで送信しました。"

type authPageData struct {
	pageBase
	Tab    string
	Email  string
	Error  *model.APIError
	Notice string
}

// AuthHandler はログイン・新規登録・ログアウト・パスワード再設定のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer *Renderer
	cookies  CookieConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, renderer *Renderer, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		cookies:  cookies,
	}
}

// Show は認証画面を表示する。ログイン済みの場合はダッシュボードへ移動する。
// GET /auth?tab=login|register|forgot
func (h *AuthHandler) Show(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, authPageData{Tab: normalizeTab(r.URL.Query().Get("tab"))})
}

// Login はログインフォームを処理する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, tabLogin, h.service.Login)
}

// Register は新規登録フォームを処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, tabRegister, h.service.Register)
}

func (h *AuthHandler) authenticate(
	w http.ResponseWriter,
	r *http.Request,
	tab string,
	call func(ctx context.Context, creds gateway.Credentials) (*model.Session, error),
) {
	creds := gateway.Credentials{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	session, err := call(r.Context(), creds)
	if err != nil {
		h.renderError(w, r, tab, creds.Email, err)
		return
	}

	// ログイン中に再ログインした場合は古いセッションとWorkspaceを先に破棄する
	if old, err := r.Cookie(middleware.SessionCookieName); err == nil && old.Value != "" && old.Value != session.ID {
		if logoutErr := h.service.Logout(r.Context(), old.Value); logoutErr != nil {
			slog.Error("failed to close previous session", slog.String("error", logoutErr.Error()))
		}
	}
	h.cookies.setSession(w, session.ID)

	ws := h.service.Workspace(r.Context(), session)
	if !ws.OnboardingCompleted() {
		seeOther(w, r, "/onboarding")
		return
	}
	seeOther(w, r, "/app")
}

// Forgot はパスワード再設定の受付を行う。外部への送信は行わない。
// POST /auth/forgot
func (h *AuthHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if err := h.service.ForgotPassword(email); err != nil {
		h.renderError(w, r, tabForgot, email, err)
		return
	}

	h.render(w, r, http.StatusOK, authPageData{
		Tab:    tabLogin,
		Email:  gateway.NormalizeEmail(email),
		Notice: forgotPasswordNotice,
	})
}

// Logout はセッションを破棄してトップページへ移動する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウトに失敗してもCookieはクリアする
		}
	}

	h.cookies.clearSession(w)
	seeOther(w, r, "/")
}

func (h *AuthHandler) renderError(w http.ResponseWriter, r *http.Request, tab, email string, err error) {
	apiErr, ok := asAPIError(err)
	if !ok {
		slog.Error("authentication failed",
			slog.String("tab", tab),
			slog.String("error", err.Error()),
		)
		h.render(w, r, http.StatusInternalServerError, authPageData{
			Tab:   tab,
			Email: email,
			Error: model.NewInternalError(),
		})
		return
	}

	h.render(w, r, formStatus(apiErr), authPageData{
		Tab:   tab,
		Email: email,
		Error: apiErr,
	})
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, data authPageData) {
	data.pageBase = newPageBase(r, "ログイン")
	if data.Tab == tabRegister {
		data.Title = "新規登録"
	}
	h.renderer.Render(w, status, pageAuth, data)
}

func normalizeTab(tab string) string {
	switch tab {
	case tabRegister, tabForgot:
		return tab
	default:
		return tabLogin
	}
}
