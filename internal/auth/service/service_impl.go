package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/billfold/billfold/internal/auth/domain"
	"github.com/billfold/billfold/internal/auth/password"
	"github.com/billfold/billfold/internal/clock"
	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/usercontext"
	"github.com/billfold/billfold/pkg/repository"
)

const minPasswordLength = 8

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	userRepo repository.Repository[authdomain.User]

	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewService(p ServiceParam) authdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("auth.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		userRepo: repository.ProvideStore[authdomain.User](p.DB),

		jwtSecret: []byte(p.Cfg.JWTSecret),
		tokenTTL:  p.Cfg.TokenTTL,
	}
}

func (s *Service) SignUp(ctx context.Context, req authdomain.SignUpRequest) (*authdomain.TokenResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, authdomain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, authdomain.ErrWeakPassword
	}

	existing, err := s.userRepo.FindOne(ctx, &authdomain.User{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, authdomain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	user := &authdomain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return s.issueToken(user)
}

func (s *Service) SignIn(ctx context.Context, req authdomain.SignInRequest) (*authdomain.TokenResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, authdomain.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindOne(ctx, &authdomain.User{Email: email})
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return nil, authdomain.ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *Service) ChangePassword(ctx context.Context, req authdomain.ChangePasswordRequest) error {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return authdomain.ErrInvalidToken
	}
	if len(req.NewPassword) < minPasswordLength {
		return authdomain.ErrWeakPassword
	}

	user, err := s.userRepo.FindOne(ctx, &authdomain.User{ID: snowflake.ID(userID)})
	if err != nil {
		return err
	}
	if user == nil || !password.Verify(req.CurrentPassword, user.PasswordHash) {
		return authdomain.ErrInvalidCredentials
	}

	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now().UTC()
	return s.userRepo.Save(ctx, user)
}

func (s *Service) UpdateProfile(ctx context.Context, req authdomain.UpdateProfileRequest) (*authdomain.User, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, authdomain.ErrInvalidEmail
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if email != user.Email {
		existing, err := s.userRepo.FindOne(ctx, &authdomain.User{Email: email})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, authdomain.ErrEmailTaken
		}
	}

	user.Email = email
	user.DisplayName = strings.TrimSpace(req.DisplayName)
	user.UpdatedAt = s.clock.Now().UTC()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) VerifyToken(token string) (int64, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(token), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, authdomain.ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return 0, authdomain.ErrInvalidToken
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return 0, authdomain.ErrInvalidToken
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, authdomain.ErrInvalidToken
	}
	return userID, nil
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*authdomain.User, error) {
	user, err := s.userRepo.FindOne(ctx, &authdomain.User{ID: snowflake.ID(userID)})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) SetAvatarURL(ctx context.Context, userID int64, avatarURL string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.AvatarURL = strings.TrimSpace(avatarURL)
	user.UpdatedAt = s.clock.Now().UTC()
	return s.userRepo.Save(ctx, user)
}

func (s *Service) issueToken(user *authdomain.User) (*authdomain.TokenResponse, error) {
	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &authdomain.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}

func normalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}
