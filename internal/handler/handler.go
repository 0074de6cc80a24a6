// Package handler はブラウザ向けのHTTPハンドラーを提供する。
//
// 画面はサーバーサイドでHTMLを描画し、フォーム送信はPOST→リダイレクトで処理する。
// セッションはmiddleware.NewSessionMiddlewareがコンテキストに注入したものを使う。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/onboarding"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/workspace"
)

// hasVisitedCookie は初回訪問済みを示すCookieの名前。
const hasVisitedCookie = "has_visited"

// WorkspaceProvider はセッションに紐づくWorkspaceを返す。
type WorkspaceProvider interface {
	Workspace(ctx context.Context, session *model.Session) *workspace.Workspace
}

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	WorkspaceProvider
	Login(ctx context.Context, creds gateway.Credentials) (*model.Session, error)
	Register(ctx context.Context, creds gateway.Credentials) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	ForgotPassword(email string) error
}

// OnboardingServiceInterface はオンボーディング完了処理のインターフェース。
type OnboardingServiceInterface interface {
	Complete(ctx context.Context, userID model.UserID, sel *onboarding.Selector) (model.OnboardingState, error)
}

// NoteSanitizer は日記メモの正規化を行うインターフェース。
type NoteSanitizer interface {
	Sanitize(note string) string
}

// CookieConfig はハンドラーが発行するCookieの共通設定。
type CookieConfig struct {
	Domain        string
	Secure        bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

func (c CookieConfig) setSession(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   c.SessionMaxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setVisited は初回訪問マーカーを設定する。有効期限は1年。
func (c CookieConfig) setVisited(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     hasVisitedCookie,
		Value:    "true",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func hasVisited(r *http.Request) bool {
	c, err := r.Cookie(hasVisitedCookie)
	return err == nil && c.Value != ""
}

// asAPIError はエラーからAPIErrorを取り出す。APIErrorでない場合はfalseを返す。
func asAPIError(err error) (*model.APIError, bool) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// formStatus はフォームを再描画する際のHTTPステータスを返す。
// 外部APIとの通信失敗は502、それ以外の入力・拒否エラーは422とする。
func formStatus(apiErr *model.APIError) int {
	if apiErr.Code == model.ErrCodeGatewayUnavailable {
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

// seeOther はPOST後のリダイレクトを行う。
func seeOther(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// pageBase は全画面で共通のテンプレートデータ。
type pageBase struct {
	Title     string
	CSRFField string
	CSRFToken string
	User      *model.User
}

func newPageBase(r *http.Request, title string) pageBase {
	base := pageBase{
		Title:     title,
		CSRFField: middleware.CSRFFormField,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	}
	if session, ok := middleware.SessionFromContext(r.Context()); ok {
		user := session.User
		base.User = &user
	}
	return base
}

// requireWorkspace はセッションとWorkspaceを取得する。
// 未ログインの場合は認証画面へ移動してfalseを返す。
func requireWorkspace(w http.ResponseWriter, r *http.Request, provider WorkspaceProvider) (*model.Session, *workspace.Workspace, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return nil, nil, false
	}
	return session, provider.Workspace(r.Context(), session), true
}
