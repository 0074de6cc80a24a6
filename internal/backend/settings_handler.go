package backend

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/repository"
)

const (
	msgAuthRequired   = "認証が必要です"
	msgMetricsNotList = "metrics は文字列の配列で指定してください"
)

type saveSettingsResponse struct {
	Success bool     `json:"success"`
	Metrics []string `json:"metrics"`
}

// SettingsHandler は GET|POST /settings を処理する。
// X-Auth-Token ヘッダーの値をユーザーIDとして扱う。
type SettingsHandler struct {
	settings repository.SettingsRepository
	logger   *slog.Logger
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(settings repository.SettingsRepository, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// Get はユーザーの選択メトリクスとオンボーディング完了フラグを返す。
// 設定が未保存の場合は空のメトリクスと未完了を返す。
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	state, err := h.settings.FindByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load settings", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if state == nil {
		state = &model.OnboardingState{SelectedMetricIDs: []string{}}
	}

	middleware.WriteJSON(w, http.StatusOK, state)
}

// Save は選択メトリクスを保存し、オンボーディングを完了済みにする。
// metrics が省略された場合は空の配列として保存する。
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Metrics json.RawMessage `json:"metrics"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	metrics := []string{}
	if raw := bytes.TrimSpace(body.Metrics); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if raw[0] != '[' || json.Unmarshal(raw, &metrics) != nil {
			writeError(w, http.StatusBadRequest, msgMetricsNotList)
			return
		}
	}

	if err := h.settings.SaveMetrics(r.Context(), userID, metrics); err != nil {
		h.logger.Error("failed to save settings", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, saveSettingsResponse{Success: true, Metrics: metrics})
}

// userID はX-Auth-Tokenヘッダーからユーザーを特定する。失敗時は401を書き込みfalseを返す。
func (h *SettingsHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get(gateway.AuthTokenHeader))
	if raw == "" {
		writeError(w, http.StatusUnauthorized, msgAuthRequired)
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgInvalidToken)
		return "", false
	}
	return id.String(), true
}
