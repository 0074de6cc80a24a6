package gateway

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credentials はログイン・登録フォームの入力値。
type Credentials struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// NormalizeEmail は送信前にメールアドレスの前後の空白を除き、小文字に揃える。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail はメールアドレスが基本的な形式を満たすかを返す。
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidateCredentials は外部APIへ送信する前に入力値を検証する。
// 検査順は 未入力 → パスワード長 → メール形式 → 確認用パスワード一致（登録時のみ）。
func ValidateCredentials(c Credentials, register bool) error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return model.NewEmptyCredentialsError()
	}
	if register && c.ConfirmPassword == "" {
		return model.NewEmptyCredentialsError()
	}
	if utf8.RuneCountInString(c.Password) < MinPasswordLength {
		return model.NewPasswordTooShortError(MinPasswordLength)
	}
	if !ValidEmail(c.Email) {
		return model.NewInvalidEmailError()
	}
	if register && c.Password != c.ConfirmPassword {
		return model.NewPasswordMismatchError()
	}
	return nil
}
