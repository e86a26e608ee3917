package authservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"
)

// GoogleConfig enables Google sign-in when ClientID is set. AuthURL and
// TokenURL override google.Endpoint.
type GoogleConfig struct {
	ClientID     string        `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	CallbackURL  string        `yaml:"callback_url" env:"GOOGLE_CALLBACK_URL"`
	AuthURL      string        `yaml:"auth_url" env:"GOOGLE_AUTH_URL"`
	TokenURL     string        `yaml:"token_url" env:"GOOGLE_TOKEN_URL"`
	UserInfoURL  string        `yaml:"userinfo_url" env:"GOOGLE_USERINFO_URL" env-default:"https://www.googleapis.com/oauth2/v2/userinfo"`
	TokenInfoURL string        `yaml:"tokeninfo_url" env:"GOOGLE_TOKENINFO_URL" env-default:"https://www.googleapis.com/oauth2/v3/tokeninfo"`
	Timeout      time.Duration `yaml:"timeout" env:"GOOGLE_TIMEOUT" env-default:"10s"`
}

func (c GoogleConfig) Enabled() bool {
	return c.ClientID != ""
}

type googleProvider struct {
	oauth        *oauth2.Config
	client       *http.Client
	clientID     string
	userInfoURL  string
	tokenInfoURL string
}

func newGoogleProvider(cfg GoogleConfig) *googleProvider {
	if !cfg.Enabled() {
		return nil
	}

	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	tokenInfoURL := cfg.TokenInfoURL
	if tokenInfoURL == "" {
		tokenInfoURL = defaultTokenInfoURL
	}

	return &googleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       []string{"email", "profile"},
		},
		client:       &http.Client{Timeout: timeout},
		clientID:     cfg.ClientID,
		userInfoURL:  userInfoURL,
		tokenInfoURL: tokenInfoURL,
	}
}

type googleProfile struct {
	Email string
	Name  string
}

// GoogleAuthURL returns the consent page the client is redirected to.
func (a *Auth) GoogleAuthURL(state string) (string, error) {
	if a.google == nil {
		return "", models.ErrGoogleDisabled
	}
	return a.google.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// GoogleCallback exchanges an authorization code, reads the Google profile
// and signs the matching account in, creating a verified one on first use.
func (a *Auth) GoogleCallback(ctx context.Context, code string) (models.User, string, error) {
	const op = "auth.GoogleCallback"

	log := a.log.With(slog.String("op", op))

	if a.google == nil {
		return models.User{}, "", models.ErrGoogleDisabled
	}
	if code == "" {
		return models.User{}, "", models.InvalidInput("authorization code is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.google.client)

	tok, err := a.google.oauth.Exchange(ctx, code)
	if err != nil {
		log.Info("code exchange failed", sl.Err(err))
		return models.User{}, "", models.ErrGoogleToken
	}

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, a.google.oauth.Client(ctx, tok), a.google.userInfoURL, &info); err != nil {
		log.Info("failed to read google profile", sl.Err(err))
		return models.User{}, "", models.ErrGoogleToken
	}

	return a.googleSignIn(ctx, log, googleProfile{Email: info.Email, Name: info.Name})
}

// GoogleSignIn verifies a Google id token issued to this client and signs
// the matching account in.
func (a *Auth) GoogleSignIn(ctx context.Context, idToken string) (models.User, string, error) {
	const op = "auth.GoogleSignIn"

	log := a.log.With(slog.String("op", op))

	if a.google == nil {
		return models.User{}, "", models.ErrGoogleDisabled
	}
	if idToken == "" {
		return models.User{}, "", models.ErrInvalidToken
	}

	var info struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Audience   string `json:"aud"`
	}
	target := a.google.tokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	if err := getJSON(ctx, a.google.client, target, &info); err != nil {
		log.Info("id token rejected", sl.Err(err))
		return models.User{}, "", models.ErrGoogleToken
	}

	if info.Audience != a.google.clientID {
		log.Warn("id token issued to another client", slog.String("aud", info.Audience))
		return models.User{}, "", models.ErrGoogleToken
	}

	family := info.FamilyName
	if family == "" {
		family = info.GivenName
	}

	return a.googleSignIn(ctx, log, googleProfile{
		Email: info.Email,
		Name:  strings.TrimSpace(info.GivenName + " " + family),
	})
}

func (a *Auth) googleSignIn(ctx context.Context, log *slog.Logger, profile googleProfile) (models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return models.User{}, "", models.ErrGoogleNoEmail
	}

	log = log.With(slog.String("email", email))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		user, err = a.createGoogleUser(ctx, email, profile.Name)
		if err != nil {
			log.Error("failed to create google user", sl.Err(err))
			return models.User{}, "", models.Sanitize(err)
		}
		log.Info("user registered with google", slog.String("user_id", user.ID.String()))
	case err != nil:
		log.Error("failed to get user", sl.Err(err))
		return models.User{}, "", models.Sanitize(err)
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

// createGoogleUser saves a password-less verified account. A concurrent
// first sign-in for the same email resolves to the stored account.
func (a *Auth) createGoogleUser(ctx context.Context, email, name string) (models.User, error) {
	now := time.Now().UTC()
	user := models.User{
		ID:         uuid.New(),
		Email:      email,
		Name:       name,
		PassHash:   []byte{},
		Role:       models.RoleUser,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := a.usrSaver.SaveUser(ctx, user)
	if errors.Is(err, models.ErrUserExists) {
		return a.usrProvider.UserByEmail(ctx, email)
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func getJSON(ctx context.Context, client *http.Client, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return nil
}
