package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したゲートウェイユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.GatewayUser, error) {
	user := &model.GatewayUser{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, onboarding_completed, created_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.OnboardingCompleted, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。メールアドレスが重複する場合はErrEmailTakenを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.GatewayUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, onboarding_completed, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.OnboardingCompleted, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// PostgresSettingsRepo はPostgreSQLを使用したメトリクス設定リポジトリ。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// FindByUserID はユーザーの選択メトリクスとオンボーディング完了フラグを取得する。
// 設定が存在しない場合はnilを返す。
func (r *PostgresSettingsRepo) FindByUserID(ctx context.Context, userID string) (*model.OnboardingState, error) {
	var raw []byte
	state := &model.OnboardingState{}
	err := r.db.QueryRowContext(ctx,
		`SELECT s.selected_metrics, u.onboarding_completed
		 FROM user_settings s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.user_id = $1`,
		userID,
	).Scan(&raw, &state.Completed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user settings: %w", err)
	}

	if err := json.Unmarshal(raw, &state.SelectedMetricIDs); err != nil {
		return nil, fmt.Errorf("failed to decode selected metrics: %w", err)
	}
	if state.SelectedMetricIDs == nil {
		state.SelectedMetricIDs = []string{}
	}

	return state, nil
}

// SaveMetrics は選択メトリクスをUPSERTし、ユーザーをオンボーディング完了済みにする。
// 2つの更新は同一トランザクションで行う。
func (r *PostgresSettingsRepo) SaveMetrics(ctx context.Context, userID string, metricIDs []string) error {
	if metricIDs == nil {
		metricIDs = []string{}
	}
	raw, err := json.Marshal(metricIDs)
	if err != nil {
		return fmt.Errorf("failed to encode selected metrics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, selected_metrics, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET
		     selected_metrics = EXCLUDED.selected_metrics,
		     updated_at = now()`,
		userID, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user settings: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET onboarding_completed = TRUE WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark onboarding completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var (
	_ GatewayUserRepository = (*PostgresUserRepo)(nil)
	_ SettingsRepository    = (*PostgresSettingsRepo)(nil)
)
