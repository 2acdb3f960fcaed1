package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestUserServiceRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	first, err := svc.Register(context.Background(), RegisterInput{Email: " Ana@Example.com ", Password: "secret1", FirstName: "Ana"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.Email != "ana@example.com" || first.PasswordHash == "" || first.PasswordHash == "secret1" {
		t.Fatalf("unexpected user %+v", first)
	}

	_, err = svc.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "another1", FirstName: "Other"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("expected a single user row, got %d", repo.creates)
	}
	stored, _ := repo.GetByID(context.Background(), first.ID)
	if stored.FirstName != "Ana" {
		t.Fatalf("existing user modified: %+v", stored)
	}
}

func TestUserServiceRegister_Validation(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newFakeUserRepo())

	cases := []RegisterInput{
		{Email: "not-an-email", Password: "secret1"},
		{Email: "a@b.com", Password: "123"},
	}
	for i, c := range cases {
		if _, err := svc.Register(context.Background(), c); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestUserServiceAuthenticate(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newFakeUserRepo())
	user, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Authenticate(context.Background(), "A@B.com", "secret1")
	if err != nil || got.ID != user.ID {
		t.Fatalf("expected login, got %v %+v", err, got)
	}
	if _, err := svc.Authenticate(context.Background(), "a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost@b.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUserServiceUpsertFederatedUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	user, err := svc.UpsertFederatedUser(context.Background(), FederatedProfile{
		Provider: "google", Subject: "123", Email: "g@example.com", FirstName: "Gia",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if user.ID != "google:123" || user.AuthProvider != "google" {
		t.Fatalf("unexpected user %+v", user)
	}

	again, err := svc.UpsertFederatedUser(context.Background(), FederatedProfile{
		Provider: "google", Subject: "123", Email: "g@example.com", FirstName: "Gianna",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != user.ID || again.FirstName != "Gianna" || len(repo.byID) != 1 {
		t.Fatalf("expected profile refresh on same id, got %+v", again)
	}
}

func TestUserServiceUpsertFederatedUser_LinksExistingEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(zap.NewNop(), repo)
	local, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.UpsertFederatedUser(context.Background(), FederatedProfile{Provider: "google", Subject: "9", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if user.ID != local.ID {
		t.Fatalf("expected existing account, got %+v", user)
	}
}

func TestUserServiceGetUser_MissingIsUnauthorized(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newFakeUserRepo())
	if _, err := svc.GetUser(context.Background(), "nobody"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
