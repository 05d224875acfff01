package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// Tokens is the result of a login or refresh.
type Tokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt,omitzero"`
	TokenType        string    `json:"tokenType"`
}

type AuthService struct {
	users      UserStore
	tokens     TokenStore
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users UserStore, tokens TokenStore, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{users: users, tokens: tokens, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func errBadCredentials() error {
	return apperr.Unauthorized(apperr.ReasonInvalidCredentials, "invalid email or password")
}

// Login checks the password and issues an access token plus a refresh
// token whose hash replaces any earlier one.
func (s *AuthService) Login(ctx context.Context, email, password string) (Tokens, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Tokens{}, errBadCredentials()
	}
	if err != nil {
		return Tokens{}, translate(err, "user")
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Tokens{}, errBadCredentials()
	}

	at, err := utils.NewAccessToken(s.secret, u.ID, u.Role, s.accessTTL)
	if err != nil {
		return Tokens{}, apperr.Internal("sign access token", err)
	}
	rt, err := utils.NewRefreshToken(s.refreshTTL)
	if err != nil {
		return Tokens{}, apperr.Internal("generate refresh token", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return Tokens{}, translate(err, "user")
	}
	return Tokens{
		AccessToken:      at.Token,
		AccessExpiresAt:  at.Exp,
		RefreshToken:     rt.Raw,
		RefreshExpiresAt: rt.Exp,
		TokenType:        "Bearer",
	}, nil
}

// Refresh issues a new access token for a live refresh token. The role is
// read again so role changes take effect.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Tokens, error) {
	if raw == "" {
		return Tokens{}, apperr.Unauthorized(apperr.ReasonInvalidToken, "refresh token is required")
	}
	userID, err := s.tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return Tokens{}, apperr.Unauthorized(apperr.ReasonInvalidToken, "invalid or expired refresh token")
	}
	if err != nil {
		return Tokens{}, translate(err, "token")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Tokens{}, apperr.Unauthorized(apperr.ReasonInvalidToken, "invalid or expired refresh token")
	}
	at, err := utils.NewAccessToken(s.secret, u.ID, u.Role, s.accessTTL)
	if err != nil {
		return Tokens{}, apperr.Internal("sign access token", err)
	}
	return Tokens{AccessToken: at.Token, AccessExpiresAt: at.Exp, TokenType: "Bearer"}, nil
}

// Logout revokes the caller's refresh token.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	return translate(s.tokens.Revoke(ctx, userID), "user")
}
