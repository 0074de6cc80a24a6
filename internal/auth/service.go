// Package auth はメールアドレス・パスワード認証、セッション管理を提供する。
//
// 認証そのものは外部の認証APIに委譲する。このパッケージはログイン成功時にセッションと
// セッション専用のWorkspaceを作成し、ログアウト時に両方を破棄する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/repository"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/workspace"
)

// 認証試行の結果ラベル
const (
	outcomeSuccess  = "success"
	outcomeInvalid  = "invalid"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Authenticator は外部認証APIのインターフェース。
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*gateway.AuthResult, error)
	Register(ctx context.Context, email, password string) (*gateway.AuthResult, error)
	Verify(ctx context.Context, token string) (*model.User, error)
}

// OnboardingStatus はログイン直後のオンボーディング状態を取得するインターフェース。
type OnboardingStatus interface {
	Status(ctx context.Context, userID model.UserID) model.OnboardingState
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	gateway     Authenticator
	onboarding  OnboardingStatus
	sessionRepo repository.SessionRepository
	workspaces  *workspace.Manager
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	gw Authenticator,
	onboarding OnboardingStatus,
	sessionRepo repository.SessionRepository,
	workspaces *workspace.Manager,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		gateway:     gw,
		onboarding:  onboarding,
		sessionRepo: sessionRepo,
		workspaces:  workspaces,
		metrics:     collector,
		logger:      logger,
	}
}

// Login は入力を検証した上で外部認証APIでログインし、セッションを発行する。
// 検証エラーの場合は外部APIへリクエストしない。
func (s *Service) Login(ctx context.Context, creds gateway.Credentials) (*model.Session, error) {
	return s.authenticate(ctx, gateway.ActionLogin, creds, false, s.gateway.Login)
}

// Register は入力を検証した上で外部認証APIに新規登録し、セッションを発行する。
func (s *Service) Register(ctx context.Context, creds gateway.Credentials) (*model.Session, error) {
	return s.authenticate(ctx, gateway.ActionRegister, creds, true, s.gateway.Register)
}

func (s *Service) authenticate(
	ctx context.Context,
	action string,
	creds gateway.Credentials,
	register bool,
	call func(ctx context.Context, email, password string) (*gateway.AuthResult, error),
) (*model.Session, error) {
	if err := gateway.ValidateCredentials(creds, register); err != nil {
		s.metrics.RecordAuthAttempt(action, outcomeInvalid)
		return nil, err
	}

	result, err := call(ctx, creds.Email, creds.Password)
	if err != nil {
		if gateway.IsUnavailable(err) {
			s.metrics.RecordAuthAttempt(action, outcomeError)
		} else {
			s.metrics.RecordAuthAttempt(action, outcomeRejected)
		}
		return nil, err
	}

	session, err := s.createSession(ctx, result)
	if err != nil {
		s.metrics.RecordAuthAttempt(action, outcomeError)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	ws, _ := s.workspaces.Open(session.ID)
	ws.SetOnboarding(s.onboarding.Status(ctx, session.User.ID))

	s.metrics.RecordAuthAttempt(action, outcomeSuccess)
	s.logger.Info("user authenticated",
		slog.String("action", action),
		slog.String("user_id", session.User.ID.String()),
		slog.Bool("onboarding_completed", ws.OnboardingCompleted()),
	)

	return session, nil
}

// Logout はセッションとWorkspaceを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.workspaces.Close(sessionID)

	s.logger.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// FindByID はセッションIDからセッションを取得する。存在しない場合はnilを返す。
// Workspaceがまだないセッション（サーバー再起動後のPostgreSQLセッションなど）は、
// 返す前に認証APIでトークンを検証し直す。拒否されたセッションは削除してnilを返し、
// 認証APIに到達できない場合はセッションをそのまま使う。
func (s *Service) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	if _, ok := s.workspaces.Get(session.ID); ok {
		return session, nil
	}

	if _, err := s.gateway.Verify(ctx, session.Token); err != nil {
		if gateway.IsUnavailable(err) {
			s.logger.Warn("session token not re-verified: auth gateway unavailable",
				slog.String("user_id", session.User.ID.String()),
			)
			return session, nil
		}
		s.logger.Info("stored session rejected by auth gateway",
			slog.String("user_id", session.User.ID.String()),
		)
		if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
			return nil, fmt.Errorf("failed to delete rejected session: %w", err)
		}
		return nil, nil
	}
	return session, nil
}

// DeleteCreatedBefore はcutoffより前に作成されたセッションを削除し、
// 同じ基準で古いWorkspaceも破棄する。削除したセッション数を返す。
// セッションが先に消えるとWorkspaceへ到達できなくなるため、両方を同時に片付ける。
func (s *Service) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.sessionRepo.DeleteCreatedBefore(ctx, cutoff)
	evicted := s.workspaces.DeleteCreatedBefore(cutoff)
	if evicted > 0 {
		s.logger.Info("expired workspaces evicted", slog.Int("evicted_count", evicted))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return deleted, nil
}

// Workspace はセッションのWorkspaceを返す。
// 永続化されたセッションがサーバー再起動後に使われた場合など、Workspaceが存在しなければ
// 新規作成してオンボーディング状態を取得し直す。
func (s *Service) Workspace(ctx context.Context, session *model.Session) *workspace.Workspace {
	ws, created := s.workspaces.Open(session.ID)
	if created {
		ws.SetOnboarding(s.onboarding.Status(ctx, session.User.ID))
	}
	return ws
}

// ForgotPassword はパスワード再設定の受付を行う。
// メールアドレスの入力と形式のみ検証し、外部への送信は行わない。
func (s *Service) ForgotPassword(email string) error {
	email = gateway.NormalizeEmail(email)
	if email == "" {
		return model.NewEmptyCredentialsError()
	}
	if !gateway.ValidEmail(email) {
		return model.NewInvalidEmailError()
	}
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, result *gateway.AuthResult) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Token:     result.Token,
		User:      result.User,
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
