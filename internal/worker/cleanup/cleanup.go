// Package cleanup はログインセッションの定期削除ジョブを提供する。
// Cookieの有効期間を過ぎたセッションはブラウザから送られてこなくなるため、
// ストアに残った分を日次で削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval はジョブの実行間隔。
const DefaultInterval = 24 * time.Hour

// SessionPurger は作成日時を基準にセッションを一括削除できるストア。
// repository.SessionRepository の実装はすべてこれを満たす。
type SessionPurger interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionCleanupJob はMaxAgeより古いセッションを削除する。
// 削除対象がなくてもエラーにならない。
type SessionCleanupJob struct {
	store  SessionPurger
	logger *slog.Logger
	MaxAge time.Duration

	now func() time.Time
}

// NewSessionCleanupJob はSessionCleanupJobを生成する。maxAgeにはセッションCookieの有効期間を渡す。
func NewSessionCleanupJob(store SessionPurger, logger *slog.Logger, maxAge time.Duration) *SessionCleanupJob {
	return &SessionCleanupJob{
		store:  store,
		logger: logger,
		MaxAge: maxAge,
		now:    time.Now,
	}
}

// Run は1回分の削除を実行する。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.MaxAge)

	deleted, err := j.store.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("session cleanup: %w", err)
	}

	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Microseconds())/1000),
	)
	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行し、ctxのキャンセルで戻る。
// 失敗は次回の実行で再試行する。
func (j *SessionCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("session cleanup will retry on next tick", slog.Duration("interval", interval))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
