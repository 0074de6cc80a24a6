// Package backend は認証APIとメトリクス設定APIの参照実装を提供する。
//
// 本体アプリケーションが外部APIとして利用する2つの契約（POST /auth、GET|POST /settings）を
// 1つのHTTPサービスとして実装し、ローカル環境でのエンドツーエンド動作を可能にする。
package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// DefaultTokenTTL は発行するトークンの有効期間。
const DefaultTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken はトークンの署名・有効期限・クレームの検証に失敗した場合のエラー。
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer はHS256署名のJWTを発行・検証する。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はユーザーIDとメールアドレスを含むトークンを発行する。
func (i *TokenIssuer) Issue(userID, email string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     jwt.NewNumericDate(i.now().Add(i.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、含まれるユーザー情報を返す。
func (i *TokenIssuer) Verify(token string) (*model.User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	if userID == "" || email == "" {
		return nil, ErrInvalidToken
	}

	return &model.User{ID: model.UserID(userID), Email: email}, nil
}
