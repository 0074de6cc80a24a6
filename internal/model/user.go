// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// UserID は外部認証APIが発行するユーザー識別子。
// 外部APIは数値IDを返す場合と文字列IDを返す場合があるため、JSONではどちらも受け付ける。
type UserID string

// UnmarshalJSON は数値・文字列どちらのJSON表現もUserIDとして読み取る。
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// String はUserIDを文字列として返す。
func (id UserID) String() string {
	return string(id)
}

// User は外部認証APIから受け取るユーザー情報を表す。
type User struct {
	ID    UserID `json:"id"`
	Email string `json:"email"`
}

// Session はユーザーのログインセッションを表す。
// ログイン・登録成功時に作成され、ログアウトで破棄される。有効期限は持たない。
type Session struct {
	ID        string
	Token     string
	User      User
	CreatedAt time.Time
}

// GatewayUser は参照実装の認証ゲートウェイが保持するユーザーレコード。
type GatewayUser struct {
	ID                  string
	Email               string
	PasswordHash        string
	OnboardingCompleted bool
	CreatedAt           time.Time
}
