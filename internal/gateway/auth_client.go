// Package gateway は外部の認証APIとメトリクス設定APIのクライアントを提供する。
//
// どちらのAPIも不透明な協調先として扱い、1回の操作につき1回だけリクエストする（リトライなし）。
// 非2xxの応答はサーバーのメッセージ付きの拒否エラー、通信失敗は汎用の接続エラーとして返す。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// maxResponseSize は外部APIの応答ボディとして読み込む最大バイト数。
const maxResponseSize = 1 << 20

// 認証APIのアクション
const (
	ActionLogin    = "login"
	ActionRegister = "register"
	ActionVerify   = "verify"
)

// AuthResult はログイン・登録成功時の応答。
type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type authRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AuthClient は外部認証APIのクライアント。
type AuthClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	endpoint   string
}

// NewAuthClient はAuthClientを生成する。
func NewAuthClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, endpoint string) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		endpoint:   endpoint,
	}
}

// Login はメールアドレスとパスワードでログインする。
// メールアドレスは送信前に正規化する。入力値の検証は呼び出し元で行う。
func (c *AuthClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, authRequest{
		Action:   ActionLogin,
		Email:    NormalizeEmail(email),
		Password: password,
	})
}

// Register は新規ユーザーを登録する。
func (c *AuthClient) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, authRequest{
		Action:   ActionRegister,
		Email:    NormalizeEmail(email),
		Password: password,
	})
}

// Verify はトークンを検証し、トークンに対応するユーザーを返す。
func (c *AuthClient) Verify(ctx context.Context, token string) (*model.User, error) {
	var resp struct {
		Valid bool       `json:"valid"`
		User  model.User `json:"user"`
	}
	if err := c.post(ctx, authRequest{Action: ActionVerify, Token: token}, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, model.NewGatewayRejectedError("")
	}
	return &resp.User, nil
}

func (c *AuthClient) authenticate(ctx context.Context, body authRequest) (*AuthResult, error) {
	var result AuthResult
	if err := c.post(ctx, body, &result); err != nil {
		return nil, err
	}
	if result.Token == "" || result.User.ID == "" {
		c.logger.Error("auth gateway returned incomplete response",
			slog.String("action", body.Action),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewayAuth, "malformed")
		return nil, model.NewGatewayRejectedError("")
	}
	return &result, nil
}

// post は認証APIにJSONをPOSTし、2xxの応答をoutにデコードする。
func (c *AuthClient) post(ctx context.Context, body authRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordGatewayLatency(metrics.GatewayAuth, time.Since(start))
	if err != nil {
		c.logger.Error("auth gateway request failed",
			slog.String("action", body.Action),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewayAuth, "transport")
		return model.NewGatewayUnavailableError()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("failed to read auth gateway response",
			slog.String("action", body.Action),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewayAuth, "transport")
		return model.NewGatewayUnavailableError()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("auth gateway rejected request",
			slog.String("action", body.Action),
			slog.Int("http_status", resp.StatusCode),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewayAuth, "rejected")
		return model.NewGatewayRejectedError(decodeErrorMessage(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("failed to parse auth gateway response",
			slog.String("action", body.Action),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordGatewayFailure(metrics.GatewayAuth, "malformed")
		return model.NewGatewayRejectedError("")
	}

	return nil
}

// decodeErrorMessage は {"error": "..."} 形式の応答からメッセージを取り出す。
// 形式が異なる場合は空文字を返し、呼び出し側で汎用メッセージに置き換える。
func decodeErrorMessage(data []byte) string {
	var e errorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		return ""
	}
	return e.Error
}

// IsUnavailable はエラーが外部APIとの通信失敗によるものかを返す。
func IsUnavailable(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeGatewayUnavailable
}
