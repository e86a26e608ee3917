package authservice

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orderChat/internal/domain/models"
	jwtToken "orderChat/internal/pkg/jwt"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	JWTSecret   string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
	AdminSecret string        `yaml:"admin_secret" env:"AUTH_ADMIN_SECRET"`
	BcryptCost  int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST" env-default:"10"`
	Google      GoogleConfig  `yaml:"google"`
}

type UserSaver interface {
	SaveUser(ctx context.Context, u models.User) error
}

type UserProvider interface {
	User(ctx context.Context, id uuid.UUID) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	google      *googleProvider
	cfg         Config
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	cfg Config,
) *Auth {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		google:      newGoogleProvider(cfg.Google),
		cfg:         cfg,
	}
}

type RegisterInput struct {
	Email       string
	Name        string
	Password    string
	AdminSecret string
}

// Register creates a verified account. The ADMIN role is granted only when
// AdminSecret matches the configured secret.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	const op = "auth.Register"

	email := strings.ToLower(strings.TrimSpace(in.Email))

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("registering user")

	if email == "" || in.Password == "" {
		return models.User{}, "", models.InvalidInput("email and password are required")
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cfg.BcryptCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, "", models.ErrInternal
	}

	role := models.RoleUser
	if a.isAdminSecret(in.AdminSecret) {
		role = models.RoleAdmin
	}

	now := time.Now().UTC()
	user := models.User{
		ID:         uuid.New(),
		Email:      email,
		Name:       strings.TrimSpace(in.Name),
		PassHash:   passHash,
		Role:       role,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrUserExists) {
			log.Info("user already exists")
			return models.User{}, "", err
		}
		log.Error("failed to save user", sl.Err(err))
		return models.User{}, "", models.Sanitize(err)
	}

	token, err := a.issue(user)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return models.User{}, "", models.ErrInternal
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()), slog.String("role", string(role)))

	return user, token, nil
}

func (a *Auth) isAdminSecret(secret string) bool {
	if a.cfg.AdminSecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(a.cfg.AdminSecret)) == 1
}

func (a *Auth) Login(ctx context.Context, email string, password string) (models.User, string, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	user, err := a.usrProvider.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Info("user not found")
			return models.User{}, "", models.ErrInvalidCredentials
		}
		log.Error("failed to get user", sl.Err(err))
		return models.User{}, "", models.Sanitize(err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid password")
		return models.User{}, "", models.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return models.User{}, "", models.ErrAccountUnverified
	}

	token, err := a.issue(user)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return models.User{}, "", models.ErrInternal
	}

	return user, token, nil
}

func (a *Auth) issue(user models.User) (string, error) {
	token, err := jwtToken.New(user.ID, user.IsVerified, a.cfg.TokenTTL, []byte(a.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("auth.issue: %w", err)
	}
	return token, nil
}

// Authenticate turns a bearer token into a principal. The role is read from
// storage so a demoted admin loses access without a new token.
func (a *Auth) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	const op = "auth.Authenticate"

	log := a.log.With(slog.String("op", op))

	if token == "" {
		return models.Principal{}, models.ErrInvalidToken
	}

	claims, err := jwtToken.VerifyToken(token, []byte(a.cfg.JWTSecret))
	if err != nil {
		log.Debug("token rejected", sl.Err(err))
		return models.Principal{}, models.ErrInvalidToken
	}

	if !claims.IsVerified {
		return models.Principal{}, models.ErrUserUnverified
	}

	user, err := a.usrProvider.User(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Info("token for unknown user", slog.String("user_id", claims.UserID.String()))
			return models.Principal{}, models.ErrInvalidToken
		}
		log.Error("failed to get user", sl.Err(err))
		return models.Principal{}, models.Sanitize(err)
	}

	if !user.IsVerified {
		return models.Principal{}, models.ErrUserUnverified
	}

	return models.PrincipalOf(user), nil
}
