package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"euroassist/internal/domain"
	"euroassist/internal/repository"
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
	now    func() time.Time
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger: logger,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// FederatedProfile son los datos que entrega un proveedor externo (Google).
type FederatedProfile struct {
	Provider   string
	Subject    string
	Email      string
	FirstName  string
	LastName   string
	PictureURL string
}

const minPasswordLength = 6

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	email := normalizeEmail(input.Email)
	if !validEmail(email) {
		return domain.User{}, &ValidationError{Field: "email", Reason: "must be a valid email"}
	}
	if len(input.Password) < minPasswordLength {
		return domain.User{}, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
		AuthProvider: "local",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// Authenticate devuelve ErrInvalidCredentials tanto para email desconocido como para
// password incorrecto.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser resuelve el usuario de una sesion; si ya no existe la sesion no autoriza.
func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUnauthorized
	}
	return user, err
}

// UpsertFederatedUser crea o refresca el usuario "<provider>:<subject>". Si el email
// ya pertenece a otra cuenta, se reutiliza esa cuenta.
func (s *UserService) UpsertFederatedUser(ctx context.Context, profile FederatedProfile) (domain.User, error) {
	provider := strings.ToLower(strings.TrimSpace(profile.Provider))
	subject := strings.TrimSpace(profile.Subject)
	if provider == "" || subject == "" {
		return domain.User{}, &ValidationError{Field: "subject", Reason: "required"}
	}
	id := provider + ":" + subject
	email := normalizeEmail(profile.Email)

	if email != "" {
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil && existing.ID != id {
			s.logger.Info("federated login linked to existing account",
				zap.String("user_id", existing.ID),
				zap.String("provider", provider),
			)
			return existing, nil
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, err
		}
	}

	now := s.now()
	user, err := s.users.Upsert(ctx, domain.User{
		ID:              id,
		Email:           email,
		FirstName:       strings.TrimSpace(profile.FirstName),
		LastName:        strings.TrimSpace(profile.LastName),
		ProfileImageURL: strings.TrimSpace(profile.PictureURL),
		AuthProvider:    provider,
		AuthSubject:     subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Is(err, repository.ErrEmailTaken) {
		return domain.User{}, ErrEmailTaken
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
