// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, gateway, onboarding, journal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmptyCredentials   = "EMPTY_CREDENTIALS"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	ErrCodePasswordMismatch   = "PASSWORD_MISMATCH"
	ErrCodeGatewayRejected    = "GATEWAY_REJECTED"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeEmptySelection     = "EMPTY_SELECTION"
	ErrCodeUnknownMetric      = "UNKNOWN_METRIC"
	ErrCodeUnknownCategory    = "UNKNOWN_CATEGORY"
	ErrCodeInvalidDate        = "INVALID_DATE"
	ErrCodeInvalidMood        = "INVALID_MOOD"
	ErrCodeInvalidMonth       = "INVALID_MONTH"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewEmptyCredentialsError はメールアドレスまたはパスワード未入力エラーを生成する。
func NewEmptyCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCredentials,
		Message:  "すべての項目を入力してください。",
		Category: "validation",
		Action:   "メールアドレスとパスワードを入力してください。",
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "正しいメールアドレスを入力してください。",
		Category: "validation",
		Action:   "name@example.com の形式で入力してください。",
	}
}

// NewPasswordTooShortError はパスワード長不足エラーを生成する。
func NewPasswordTooShortError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooShort,
		Message:  fmt.Sprintf("パスワードは%d文字以上で入力してください。", minLength),
		Category: "validation",
		Action:   "より長いパスワードを入力してください。",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "パスワードが一致しません。",
		Category: "validation",
		Action:   "確認用パスワードを再入力してください。",
	}
}

// NewGatewayRejectedError は外部APIが要求を拒否した場合のエラーを生成する。
// サーバーから返されたメッセージが空の場合は汎用メッセージを使用する。
func NewGatewayRejectedError(serverMessage string) *APIError {
	msg := serverMessage
	if msg == "" {
		msg = "エラーが発生しました。"
	}
	return &APIError{
		Code:     ErrCodeGatewayRejected,
		Message:  msg,
		Category: "gateway",
		Action:   "入力内容を確認してください。",
	}
}

// NewGatewayUnavailableError は外部APIとの通信失敗エラーを生成する。
func NewGatewayUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeGatewayUnavailable,
		Message:  "サーバーとの接続に失敗しました。",
		Category: "gateway",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEmptySelectionError はメトリクス未選択のままオンボーディングを完了しようとした場合のエラーを生成する。
func NewEmptySelectionError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptySelection,
		Message:  "メトリクスを1つ以上選択してください。",
		Category: "onboarding",
		Action:   "記録したい項目を選んでから設定を完了してください。",
	}
}

// NewUnknownMetricError は未定義のメトリクスIDエラーを生成する。
func NewUnknownMetricError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownMetric,
		Message:  fmt.Sprintf("不明なメトリクスです: %s", id),
		Category: "validation",
		Action:   "一覧に表示されているメトリクスから選択してください。",
	}
}

// NewUnknownCategoryError は未定義のカテゴリエラーを生成する。
func NewUnknownCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownCategory,
		Message:  fmt.Sprintf("不明なカテゴリです: %s", category),
		Category: "validation",
		Action:   "一覧に表示されているカテゴリから選択してください。",
	}
}

// NewInvalidDateError は日付形式エラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", date),
		Category: "journal",
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidMoodError は未定義の気分エラーを生成する。
func NewInvalidMoodError(mood string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMood,
		Message:  fmt.Sprintf("無効な気分です: %s", mood),
		Category: "journal",
		Action:   "5段階の気分から1つを選択してください。",
	}
}

// NewInvalidMonthError は表示月の指定エラーを生成する。
func NewInvalidMonthError(year, month int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("無効な年月です: %d-%d", year, month),
		Category: "validation",
		Action:   "月は1から12の範囲で指定してください。",
	}
}

// NewUnauthorizedError は未ログインエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInternalError はサーバー内部エラーを生成する。詳細はログにのみ出力する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "サーバー内部でエラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
