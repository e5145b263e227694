package main

import (
	"context"
	"testing"

	"github.com/2beens/realestate/internal/users"
	"github.com/2beens/realestate/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvision(t *testing.T) {
	ctx := context.Background()
	repo := users.NewRepoMock()
	service := users.NewService(repo)

	msg, err := provision(ctx, repo, service, provisionParams{
		email:    "  Admin@Site.com ",
		name:     "Administrator",
		role:     "admin",
		password: "first-pass",
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "created for [admin@site.com]")

	// same account, typed differently
	_, err = provision(ctx, repo, service, provisionParams{
		email:    "ADMIN@site.com",
		name:     "Administrator",
		role:     "admin",
		password: "second-pass",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	msg, err = provision(ctx, repo, service, provisionParams{
		email:    "Admin@Site.com",
		password: "second-pass",
		update:   true,
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "password reset")

	cred, err := repo.GetCredentialByEmail(ctx, "admin@site.com")
	require.NoError(t, err)
	assert.True(t, pkg.CheckPasswordHash("second-pass", cred.PasswordHash))
	assert.Equal(t, "Administrator", cred.Name)
}
