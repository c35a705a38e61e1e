package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sociable/internal/model"
	"sociable/internal/repository"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID  string `json:"user_id"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// AuthService issues JWT access tokens paired with rotating refresh tokens.
// Only the sha256 hash of a refresh token is stored; replay of a rotated
// token revokes the user's whole token family.
type AuthService struct {
	refreshRepo repository.RefreshTokenRepository
	userRepo    repository.UserRepository
	jwtSecret   []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	logger      *zap.Logger
}

func NewAuthService(
	refreshRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		refreshRepo: refreshRepo,
		userRepo:    userRepo,
		jwtSecret:   []byte(jwtSecret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

// IssueTokens creates an access/refresh pair for the user.
func (s *AuthService) IssueTokens(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	access, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	rawRefresh, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	token := &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawRefresh),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.refreshRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Presenting an already-rotated token is treated as theft
// and revokes every live token of the user.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*model.TokenPair, error) {
	stored, err := s.refreshRepo.FindByTokenHash(ctx, hashToken(rawRefresh))
	if err != nil {
		return nil, err
	}

	if stored.IsRevoked() {
		s.logger.Warn("refresh token reuse detected, revoking token family",
			zap.String("user_id", stored.UserID.String()))
		if err := s.refreshRepo.RevokeAllForUser(ctx, stored.UserID); err != nil {
			return nil, err
		}
		return nil, model.ErrRefreshTokenReused
	}

	if stored.IsExpired() {
		return nil, model.ErrRefreshTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	// Link the rotation chain: look the fresh token up by hash to record
	// it as the replacement of the one just spent.
	fresh, err := s.refreshRepo.FindByTokenHash(ctx, hashToken(pair.RefreshToken))
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.Revoke(ctx, stored.ID, &fresh.ID); err != nil {
		return nil, err
	}

	return pair, nil
}

// RevokeAll invalidates every live refresh token of a user.
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.refreshRepo.RevokeAllForUser(ctx, userID)
}

// ParseAccessToken validates a signed access token and returns its claims.
func (s *AuthService) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid access token")
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(user *model.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:  user.ID.String(),
		IsStaff: user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
