package onboarding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// StatusGateway はオンボーディング状態を保持する外部APIのインターフェース。
type StatusGateway interface {
	// FetchOnboarding はユーザーのオンボーディング状態を取得する。
	FetchOnboarding(ctx context.Context, userID model.UserID) (*model.OnboardingState, error)
	// SaveMetrics は選択したメトリクスを保存し、オンボーディングを完了済みにする。
	SaveMetrics(ctx context.Context, userID model.UserID, metricIDs []string) error
}

// Service はオンボーディング状態の取得と完了処理を提供する。
type Service struct {
	gateway StatusGateway
	logger  *slog.Logger
}

// NewService はServiceを生成する。
func NewService(gateway StatusGateway, logger *slog.Logger) *Service {
	return &Service{gateway: gateway, logger: logger}
}

// Status はログイン直後のオンボーディング状態を取得する。
// 取得に失敗した場合はエラーを表示せず、未完了として扱う。
func (s *Service) Status(ctx context.Context, userID model.UserID) model.OnboardingState {
	state, err := s.gateway.FetchOnboarding(ctx, userID)
	if err != nil {
		s.logger.Warn("onboarding status fetch failed, treating as not completed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return model.OnboardingState{}
	}
	if state == nil {
		return model.OnboardingState{}
	}
	return *state
}

// Complete はSelectorの選択を確定して外部APIに保存する。
// 選択が空の場合、または保存に失敗した場合はエラーを返し、完了済みにはしない。
func (s *Service) Complete(ctx context.Context, userID model.UserID, sel *Selector) (model.OnboardingState, error) {
	ids, err := sel.Complete()
	if err != nil {
		return model.OnboardingState{}, err
	}

	if err := s.gateway.SaveMetrics(ctx, userID, ids); err != nil {
		return model.OnboardingState{}, fmt.Errorf("failed to save selected metrics: %w", err)
	}

	s.logger.Info("onboarding completed",
		slog.String("user_id", userID.String()),
		slog.Int("metric_count", len(ids)),
	)

	return model.OnboardingState{Completed: true, SelectedMetricIDs: ids}, nil
}
