// Package services contains the server-side core: membership checks, rooms,
// message envelopes, accounts and attachment presigning. It operates on
// opaque envelopes only.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

const (
	MaxUsernameLength = 64
	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
	SaltSize         = 16
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is what a successful login hands back: the account's public
// data, including the encryption salt, and fresh tokens.
type LoginResult struct {
	User   *models.User
	Tokens *TokenPair
}

// UserService provides account operations:
// - Register: validate and create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	repomanager                  repomanager.RepositoryManager
	verifier                     auth.PasswordVerifier
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	// decoy is verified against when the username is unknown, so that a
	// missing account costs as much as a wrong password.
	decoy string
	now   func() time.Time
}

func NewUserService(m repomanager.RepositoryManager, verifier auth.PasswordVerifier, cfg *config.Config, logger logging.Logger) *UserService {
	decoy, _ := verifier.Hash("no such account")
	return &UserService{
		repomanager:                  m,
		verifier:                     verifier,
		logger:                       logger.With("module", "user_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		decoy:                        decoy,
		now:                          time.Now,
	}
}

// Register creates an account with a fresh random salt. The salt is never
// regenerated afterwards. A concurrent duplicate gets common.ErrUsernameTaken.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	verifier, err := s.verifier.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		UserName:         username,
		PasswordVerifier: verifier,
		Salt:             common.GenerateRandByteArray(SaltSize),
	}
	u, err := s.repomanager.Users(s.repomanager.Conn()).Create(ctx, user)
	if err != nil {
		return nil, common.Upstream(err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login never tells an unknown username apart from a wrong password.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repomanager.Users(s.repomanager.Conn()).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.verifier.Verify(s.decoy, password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.Upstream(err)
	}
	if !s.verifier.Verify(user.PasswordVerifier, password) {
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, models.Identity{UserID: user.ID, UserName: user.UserName}, s.repomanager.Conn())
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// RefreshToken redeems a refresh token for a new pair. The old token is
// consumed in the same transaction that issues the new one, so a token can
// be redeemed once even under concurrent calls. Expired tokens are consumed
// and yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var (
		pair    *TokenPair
		expired bool
	)
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}
		if token.Expired(s.now()) {
			expired = true
			return nil
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}
		pair, err = s.generateTokenPair(ctx, models.Identity{UserID: user.ID, UserName: user.UserName}, tx)
		return err
	})
	switch {
	case err == nil && expired:
		return nil, common.ErrRefreshTokenExpired
	case err == nil:
		return pair, nil
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorInternal):
		return nil, err
	default:
		return nil, common.Upstream(err)
	}
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must be 1..%d characters", common.ErrValidation, MaxUsernameLength)
	}
	if strings.TrimSpace(username) != username {
		return fmt.Errorf("%w: username must not have surrounding spaces", common.ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, MaxPasswordBytes)
	}
	return nil
}

// --- helpers below ---

func (s *UserService) generateAccessToken(id models.Identity) (string, error) {
	return auth.GenerateToken(id, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, id models.Identity, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(id)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	issued := &models.RefreshToken{Token: refresh, UserID: id.UserID, ExpiresAt: s.now().Add(s.refreshTokenValidityDuration)}
	if err := s.repomanager.RefreshTokens(tx).Issue(ctx, issued); err != nil {
		return nil, common.Upstream(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
