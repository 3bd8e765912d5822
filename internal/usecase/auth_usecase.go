package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"gamestore/internal/config"
	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 再設定リンクの有効期限
const resetTokenTTL = time.Hour

const minPasswordLen = 6

type UserDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type AuthUsecase struct {
	cfg         config.Config
	users       repo.UserRepository
	auditRepo   repo.AuditLogRepository
	mailer      Mailer
	emailPolicy RetryPolicy
	log         *zap.Logger
	now         func() time.Time
}

func NewAuthUsecase(
	cfg config.Config,
	users repo.UserRepository,
	auditRepo repo.AuditLogRepository,
	mailer Mailer,
	log *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:         cfg,
		users:       users,
		auditRepo:   auditRepo,
		mailer:      mailer,
		emailPolicy: DefaultRetryPolicy(cfg.EmailTimeout),
		log:         log,
		now:         time.Now,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return UserDTO{}, validation("invalid email")
	}
	if len(in.Password) < minPasswordLen {
		return UserDTO{}, validation(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	//平文では保存しない
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserDTO{}, internalError(err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(pwHash),
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return UserDTO{}, WrapHTTPError(http.StatusConflict, "User already exists", ErrConflict)
		}
		return UserDTO{}, internalError(err)
	}

	return toUserDTO(user), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return LoginOutput{}, validation("email and password required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, WrapHTTPError(http.StatusUnauthorized, "Invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return LoginOutput{}, internalError(err)
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return LoginOutput{}, WrapHTTPError(http.StatusForbidden, "account disabled", ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return LoginOutput{}, WrapHTTPError(http.StatusUnauthorized, "Invalid email or password", ErrUnauthorized)
	}

	now := u.now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.Warn("update last_login_at", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	token, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return LoginOutput{}, internalError(err)
	}

	return LoginOutput{
		User: toUserDTO(user),
		Token: JwtAccessTokenDTO{
			AccessToken:  token,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

// ForgotPassword は再設定リンクをメールで送る。
// DBにはトークンのハッシュだけ保存する。
func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return validation("email required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("No user found with this email.")
	}
	if err != nil {
		return internalError(err)
	}

	plain, hash, err := newResetToken()
	if err != nil {
		return internalError(err)
	}
	expires := u.now().Add(resetTokenTTL)
	user.ResetPasswordTokenHash = &hash
	user.ResetPasswordExpiresAt = &expires
	if err := u.users.Update(ctx, user); err != nil {
		return internalError(err)
	}

	resetURL := u.cfg.FrontendURL + "/reset-password/" + plain
	msg := Email{
		To:      user.Email,
		Subject: "Password Reset",
		HTML:    resetEmailHTML(resetURL),
	}

	if u.mailer == nil {
		err = errors.New("mailer not configured")
	} else {
		_, err = withRetry(ctx, u.emailPolicy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, u.mailer.Send(ctx, msg)
		})
	}
	if err != nil {
		u.log.Error("send password reset email", zap.Int64("user_id", user.ID), zap.Error(err))

		//使えないリンクを残さない
		user.ResetPasswordTokenHash = nil
		user.ResetPasswordExpiresAt = nil
		if uerr := u.users.Update(ctx, user); uerr != nil {
			u.log.Warn("clear reset token", zap.Int64("user_id", user.ID), zap.Error(uerr))
		}
		return WrapHTTPError(http.StatusInternalServerError, "Error sending password reset email.", ErrEmailDelivery)
	}
	return nil
}

// ResetPassword は新しいパスワードを設定し、発行済みのトークンを無効にする。
func (u *AuthUsecase) ResetPassword(ctx context.Context, token string, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return validation("token required")
	}
	if len(newPassword) < minPasswordLen {
		return validation(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	user, err := u.users.FindByResetTokenHash(ctx, hashToken(token))
	if errors.Is(err, repo.ErrNotFound) {
		return validation("Invalid or expired token")
	}
	if err != nil {
		return internalError(err)
	}
	if user.ResetPasswordExpiresAt == nil || !u.now().Before(*user.ResetPasswordExpiresAt) {
		return validation("Invalid or expired token")
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err)
	}
	user.PasswordHash = string(pwHash)
	user.ResetPasswordTokenHash = nil
	user.ResetPasswordExpiresAt = nil
	if err := u.users.Update(ctx, user); err != nil {
		return internalError(err)
	}

	//古いアクセストークンを弾く
	if _, err := u.users.IncrementTokenVersion(ctx, user.ID); err != nil {
		return internalError(err)
	}
	return nil
}

func (u *AuthUsecase) ForceLogout(ctx context.Context, adminUserID int64, targetUserID int64) (ForceLogoutResponse, error) {
	if adminUserID <= 0 {
		return ForceLogoutResponse{}, unauthorized()
	}
	if targetUserID <= 0 {
		return ForceLogoutResponse{}, validation("invalid user id")
	}

	before, err := u.users.FindByID(ctx, targetUserID)
	if errors.Is(err, repo.ErrNotFound) {
		return ForceLogoutResponse{}, notFound("User not found")
	}
	if err != nil {
		return ForceLogoutResponse{}, internalError(err)
	}

	tv, err := u.users.IncrementTokenVersion(ctx, targetUserID)
	if errors.Is(err, repo.ErrNotFound) {
		return ForceLogoutResponse{}, notFound("User not found")
	}
	if err != nil {
		return ForceLogoutResponse{}, internalError(err)
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   fmt.Sprintf(`{"token_version":%d}`, before.TokenVersion),
		AfterJSON:    fmt.Sprintf(`{"token_version":%d}`, tv),
		CreatedAt:    u.now(),
	}); err != nil {
		u.log.Error("write audit log", zap.Int64("target_user_id", targetUserID), zap.Error(err))
	}

	return ForceLogoutResponse{UserID: targetUserID, NewTokenVersion: tv}, nil
}

// SeedAdmin は管理者がいなければ作る。作ったら true
func (u *AuthUsecase) SeedAdmin(ctx context.Context, email string, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	_, err := u.users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	admin := &model.User{
		Name:         "Admin User",
		Email:        email,
		PasswordHash: string(pwHash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, admin); err != nil {
		//同時に作られた
		if errors.Is(err, repo.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, int, error) {
	now := u.now()
	ttl := u.cfg.AccessTokenTTL

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}
	return signed, int(ttl.Seconds()), nil
}

// 平文はメールにだけ載せる
func newResetToken() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func resetEmailHTML(resetURL string) string {
	u := html.EscapeString(resetURL)
	return `<h1>Password Reset Request</h1>
<p>Please click the link below to reset your password:</p>
<a href="` + u + `" target="_blank">` + u + `</a>
<p>This link is valid for one hour.</p>`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}
