package httpapi

import (
	"context"
	"testing"
	"time"

	"estoquepro/backend/internal/domain"
	"estoquepro/backend/internal/store/memory"
)

func TestSignupLoginAndParseToken(t *testing.T) {
	repo := memory.New()
	auth := NewAuthManager("test-secret", time.Hour, repo)
	ctx := context.Background()

	created, err := auth.Signup(ctx, domain.SignupRequest{Email: "Dona@Loja.com", Password: "segredo1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if created.AccessToken == "" || created.UserID == "" {
		t.Fatalf("signup should log the owner in, got %+v", created)
	}

	logged, err := auth.Login(ctx, domain.LoginRequest{Email: "dona@loja.com", Password: "segredo1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	actor, err := auth.ParseToken(logged.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.UserID != created.UserID || actor.Email != "dona@loja.com" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := memory.New()
	auth := NewAuthManager("test-secret", time.Hour, repo)
	ctx := context.Background()

	if _, err := auth.Signup(ctx, domain.SignupRequest{Email: "dona@loja.com", Password: "segredo1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Email: "dona@loja.com", Password: "errada"}); err == nil {
		t.Fatal("wrong password must be rejected")
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Email: "ninguem@loja.com", Password: "segredo1"}); err == nil {
		t.Fatal("unknown email must be rejected")
	}
}

func TestSignupValidation(t *testing.T) {
	repo := memory.New()
	auth := NewAuthManager("test-secret", time.Hour, repo)
	ctx := context.Background()

	if _, err := auth.Signup(ctx, domain.SignupRequest{Email: "sem-arroba", Password: "segredo1"}); err == nil {
		t.Fatal("email without @ must be rejected")
	}
	if _, err := auth.Signup(ctx, domain.SignupRequest{Email: "a@b.com", Password: "curta"}); err == nil {
		t.Fatal("short password must be rejected")
	}
	if _, err := auth.Signup(ctx, domain.SignupRequest{Email: "a@b.com", Password: "segredo1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := auth.Signup(ctx, domain.SignupRequest{Email: "a@b.com", Password: "segredo2"}); err == nil {
		t.Fatal("duplicate email must be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("test-secret", time.Hour, memory.New())
	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}

	other := NewAuthManager("other-secret", time.Hour, memory.New())
	repo := memory.New()
	signer := NewAuthManager("test-secret", time.Hour, repo)
	created, err := signer.Signup(context.Background(), domain.SignupRequest{Email: "a@b.com", Password: "segredo1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := other.ParseToken(created.AccessToken); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}
}
