package backend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/gateway"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// 応答メッセージ
const (
	msgCredentialsRequired = "メールアドレスとパスワードは必須です"
	msgPasswordTooShort    = "パスワードは6文字以上で入力してください"
	msgEmailTaken          = "このメールアドレスは既に登録されています"
	msgInvalidCredentials  = "メールアドレスまたはパスワードが正しくありません"
	msgInvalidToken        = "無効なトークンです"
	msgUnknownAction       = "不明なアクションです"
	msgInvalidBody         = "リクエストの形式が正しくありません"
	msgInternal            = "内部エラーが発生しました"
)

// maxRequestBodySize はリクエストボディとして読み込む最大バイト数。
const maxRequestBodySize = 64 << 10

type authRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type verifyResponse struct {
	Valid bool       `json:"valid"`
	User  model.User `json:"user"`
}

type errorBody struct {
	Error string `json:"error"`
}

// AuthHandler は POST /auth を処理する。
type AuthHandler struct {
	users      repository.GatewayUserRepository
	tokens     *TokenIssuer
	logger     *slog.Logger
	bcryptCost int
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(users repository.GatewayUserRepository, tokens *TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// ServeHTTP はactionに応じて登録・ログイン・トークン検証を振り分ける。
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	switch req.Action {
	case gateway.ActionRegister:
		h.register(w, r, req)
	case gateway.ActionLogin:
		h.login(w, r, req)
	case gateway.ActionVerify:
		h.verify(w, req)
	default:
		writeError(w, http.StatusBadRequest, msgUnknownAction)
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, req authRequest) {
	email := gateway.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}
	if utf8.RuneCountInString(req.Password) < gateway.MinPasswordLength {
		writeError(w, http.StatusBadRequest, msgPasswordTooShort)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		h.internalError(w, "failed to hash password", err)
		return
	}

	user := &model.GatewayUser{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, msgEmailTaken)
			return
		}
		h.internalError(w, "failed to create user", err)
		return
	}

	h.logger.Info("gateway user registered", slog.String("user_id", user.ID))
	h.respondWithToken(w, user.ID, email)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req authRequest) {
	email := gateway.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		h.internalError(w, "failed to find user", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	h.respondWithToken(w, user.ID, email)
}

func (h *AuthHandler) verify(w http.ResponseWriter, req authRequest) {
	user, err := h.tokens.Verify(strings.TrimSpace(req.Token))
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, verifyResponse{Valid: true, User: *user})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, userID, email string) {
	token, err := h.tokens.Issue(userID, email)
	if err != nil {
		h.internalError(w, "failed to issue token", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  model.User{ID: model.UserID(userID), Email: email},
	})
}

func (h *AuthHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// writeError は {"error": "..."} 形式のエラー応答を書き込む。
func writeError(w http.ResponseWriter, status int, message string) {
	middleware.WriteJSON(w, status, errorBody{Error: message})
}
