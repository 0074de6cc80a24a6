// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// ErrEmailTaken は登録済みのメールアドレスでユーザーを作成しようとした場合のエラー。
var ErrEmailTaken = errors.New("email already registered")

// SessionRepository はログインセッションの永続化インターフェース。
// セッションはログアウトで削除されるほか、Cookieの有効期間を過ぎたものが定期ジョブで削除される。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteCreatedBefore はcutoffより前に作成されたセッションを削除し、削除件数を返す。
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GatewayUserRepository は参照実装ゲートウェイのユーザー永続化インターフェース。
type GatewayUserRepository interface {
	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.GatewayUser, error)
	// Create はユーザーを作成する。メールアドレスが重複する場合はErrEmailTakenを返す。
	Create(ctx context.Context, user *model.GatewayUser) error
}

// SettingsRepository は参照実装ゲートウェイのメトリクス設定永続化インターフェース。
type SettingsRepository interface {
	// FindByUserID はユーザーの選択メトリクスとオンボーディング完了フラグを取得する。
	// 設定が存在しない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.OnboardingState, error)
	// SaveMetrics は選択メトリクスをUPSERTし、ユーザーをオンボーディング完了済みにする。
	SaveMetrics(ctx context.Context, userID string, metricIDs []string) error
}
