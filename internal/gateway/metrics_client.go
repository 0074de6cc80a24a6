package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// AuthTokenHeader はメトリクス設定APIでユーザーを識別するヘッダー。値はユーザーID。
const AuthTokenHeader = "X-Auth-Token"

type settingsResponse struct {
	Metrics             []string `json:"metrics"`
	OnboardingCompleted bool     `json:"onboarding_completed"`
}

type settingsRequest struct {
	Metrics []string `json:"metrics"`
}

// MetricsClient は外部メトリクス設定APIのクライアント。
// オンボーディング状態の取得と、選択メトリクスの保存を行う。
type MetricsClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	endpoint   string
}

// NewMetricsClient はMetricsClientを生成する。
func NewMetricsClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, endpoint string) *MetricsClient {
	return &MetricsClient{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		endpoint:   endpoint,
	}
}

// FetchOnboarding はユーザーのオンボーディング状態を取得する。
// metricsが未設定の場合は空スライスとして扱う。
func (c *MetricsClient) FetchOnboarding(ctx context.Context, userID model.UserID) (*model.OnboardingState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings request: %w", err)
	}
	req.Header.Set(AuthTokenHeader, userID.String())

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var body settingsResponse
	if err := json.Unmarshal(data, &body); err != nil {
		c.metrics.RecordGatewayFailure(metrics.GatewaySettings, "malformed")
		return nil, fmt.Errorf("failed to parse settings response: %w", err)
	}
	if body.Metrics == nil {
		body.Metrics = []string{}
	}

	return &model.OnboardingState{
		Completed:         body.OnboardingCompleted,
		SelectedMetricIDs: body.Metrics,
	}, nil
}

// SaveMetrics は選択したメトリクスを保存する。成功した時点で外部側ではオンボーディング完了となる。
func (c *MetricsClient) SaveMetrics(ctx context.Context, userID model.UserID, metricIDs []string) error {
	payload, err := json.Marshal(settingsRequest{Metrics: metricIDs})
	if err != nil {
		return fmt.Errorf("failed to encode settings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create settings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthTokenHeader, userID.String())

	_, err = c.do(req)
	return err
}

// do はリクエストを1回だけ送信し、2xxの応答ボディを返す。
func (c *MetricsClient) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordGatewayLatency(metrics.GatewaySettings, time.Since(start))
	if err != nil {
		c.logger.Error("settings gateway request failed",
			slog.String("method", req.Method),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewaySettings, "transport")
		return nil, model.NewGatewayUnavailableError()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.RecordGatewayFailure(metrics.GatewaySettings, "transport")
		return nil, model.NewGatewayUnavailableError()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("settings gateway returned error status",
			slog.String("method", req.Method),
			slog.Int("http_status", resp.StatusCode),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewaySettings, "rejected")
		return nil, model.NewGatewayRejectedError(decodeErrorMessage(data))
	}

	return data, nil
}
