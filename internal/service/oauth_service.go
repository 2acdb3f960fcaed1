package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"euroassist/internal/domain"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrOAuthFailed = errors.New("oauth login failed")

// OAuthService implementa el login con Google: URL de consentimiento y callback.
type OAuthService struct {
	logger      *zap.Logger
	conf        *oauth2.Config
	users       *UserService
	userInfoURL string
}

func NewGoogleOAuthService(logger *zap.Logger, clientID, clientSecret, redirectURL string, users *UserService) *OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthService{
		logger: logger,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		users:       users,
		userInfoURL: googleUserInfoURL,
	}
}

// LoginURL genera un state aleatorio y la URL de consentimiento asociada.
func (s *OAuthService) LoginURL() (url, state string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	state = base64.RawURLEncoding.EncodeToString(b)
	return s.conf.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// HandleCallback canjea el code, obtiene el perfil y hace upsert del usuario.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (domain.User, error) {
	if code == "" {
		return domain.User{}, ErrOAuthFailed
	}
	token, err := s.conf.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", zap.Error(err))
		return domain.User{}, fmt.Errorf("%w: code exchange: %v", ErrOAuthFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return domain.User{}, err
	}
	resp, err := s.conf.Client(ctx, token).Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: userinfo: %v", ErrOAuthFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("%w: userinfo status %d", ErrOAuthFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.User{}, err
	}
	var gu googleUser
	if err := json.Unmarshal(body, &gu); err != nil {
		return domain.User{}, fmt.Errorf("%w: userinfo body: %v", ErrOAuthFailed, err)
	}
	if gu.ID == "" {
		return domain.User{}, fmt.Errorf("%w: userinfo without id", ErrOAuthFailed)
	}
	email := gu.Email
	if !gu.VerifiedEmail {
		email = ""
	}

	return s.users.UpsertFederatedUser(ctx, FederatedProfile{
		Provider:   "google",
		Subject:    gu.ID,
		Email:      email,
		FirstName:  gu.GivenName,
		LastName:   gu.FamilyName,
		PictureURL: gu.Picture,
	})
}
