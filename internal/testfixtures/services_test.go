package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/medilink/internal/application"
)

type capturingIdentityRepo struct {
	created application.Identity
}

func (c *capturingIdentityRepo) CreateIdentity(ctx context.Context, identity application.Identity, passwordHash string) (application.Identity, error) {
	c.created = identity
	return identity, nil
}

func (c *capturingIdentityRepo) GetIdentity(ctx context.Context, id string) (application.Identity, error) {
	return application.Identity{}, application.ErrNotFound
}

func (c *capturingIdentityRepo) GetCredentials(ctx context.Context, id string) (application.IdentityCredentials, error) {
	return application.IdentityCredentials{}, application.ErrNotFound
}

func (c *capturingIdentityRepo) GetCredentialsByUsername(ctx context.Context, username string) (application.IdentityCredentials, error) {
	return application.IdentityCredentials{}, application.ErrNotFound
}

func (c *capturingIdentityRepo) SetMFASecret(ctx context.Context, identityID, secret string, updatedAt time.Time) error {
	return nil
}

func (c *capturingIdentityRepo) ListProviders(ctx context.Context) ([]application.Identity, error) {
	return nil, nil
}

func TestServiceFactoryNewIdentityService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingIdentityRepo{}

	svc := factory.NewIdentityService(IdentityServiceDeps{Identities: repo})

	identity, err := svc.Register(context.Background(), application.RegisterParams{
		Username: "alice",
		Password: "correct horse battery staple",
		Role:     application.RolePatient,
		Email:    "alice@example.com",
		FullName: "Alice Example",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if identity.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", identity.ID)
	}
	if repo.created.ID != identity.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !identity.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), identity.CreatedAt)
	}
}
